package services

import (
	"context"
	"fmt"

	"blogfront/app/models"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Template names rendered for each page.
const (
	HomeTemplate       = "index.html"
	PostDetailTemplate = "post-details.html"
	TagFilterTemplate  = "posts-list.html"
	ContactsTemplate   = "contacts.html"
)

// ContentQueries is the read side the page assemblers depend on.
type ContentQueries interface {
	MostPopularTags(ctx context.Context, limit int) ([]*models.Tag, error)
	MostPopularPosts(ctx context.Context, limit int) ([]*models.Post, error)
	MostRecentPosts(ctx context.Context, limit int) ([]*models.Post, error)
	PostBySlug(ctx context.Context, slug string) (*models.Post, error)
	CommentsForPost(ctx context.Context, post *models.Post) ([]*models.Comment, error)
	TagByTitle(ctx context.Context, title string) (*models.Tag, error)
	PostsForTag(ctx context.Context, tag *models.Tag, limit int) ([]*models.Post, error)
}

// PageLimits bounds the listings on each page.
type PageLimits struct {
	Popular  int `validate:"gte=0"`
	Recent   int `validate:"gte=0"`
	TagPosts int `validate:"gte=0"`
}

// DefaultPageLimits returns the stock listing sizes.
func DefaultPageLimits() PageLimits {
	return PageLimits{Popular: 5, Recent: 5, TagPosts: 20}
}

// Page is an assembled template context
type Page struct {
	Template string
	Context  any
}

// HomeContext is the context of the homepage
type HomeContext struct {
	MostPopularPosts []PostView `json:"most_popular_posts"`
	PagePosts        []PostView `json:"page_posts"`
	PopularTags      []TagView  `json:"popular_tags"`
}

// PostDetailContext is the context of a post page
type PostDetailContext struct {
	Post             PostDetailView `json:"post"`
	PopularTags      []TagView      `json:"popular_tags"`
	MostPopularPosts []PostView     `json:"most_popular_posts"`
}

// TagFilterContext is the context of a tag page
type TagFilterContext struct {
	Tag              string     `json:"tag"`
	PopularTags      []TagView  `json:"popular_tags"`
	Posts            []PostView `json:"posts"`
	MostPopularPosts []PostView `json:"most_popular_posts"`
}

// ContactsContext is the (empty) context of the contacts page
type ContactsContext struct{}

// PageService assembles the four public pages from queries and the serializer.
type PageService struct {
	queries    ContentQueries
	serializer *Serializer
	limits     PageLimits
	logger     *zap.Logger
}

// NewPageService creates a new PageService
func NewPageService(queries ContentQueries, serializer *Serializer, limits PageLimits, logger *zap.Logger) (*PageService, error) {
	if queries == nil {
		return nil, fmt.Errorf("queries cannot be nil")
	}
	if serializer == nil {
		serializer = NewSerializer("")
	}
	if err := validator.New().Struct(limits); err != nil {
		return nil, fmt.Errorf("invalid page limits: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageService{queries: queries, serializer: serializer, limits: limits, logger: logger}, nil
}

// Home assembles the homepage: popular posts, recent posts and popular tags.
func (s *PageService) Home(ctx context.Context) (*Page, error) {
	popular, err := s.queries.MostPopularPosts(ctx, s.limits.Popular)
	if err != nil {
		return nil, err
	}
	recent, err := s.queries.MostRecentPosts(ctx, s.limits.Recent)
	if err != nil {
		return nil, err
	}
	tags, err := s.queries.MostPopularTags(ctx, s.limits.Popular)
	if err != nil {
		return nil, err
	}

	return s.page(HomeTemplate, HomeContext{
		MostPopularPosts: s.serializer.SerializePosts(popular),
		PagePosts:        s.serializer.SerializePosts(recent),
		PopularTags:      s.serializer.SerializeTags(tags),
	}), nil
}

// PostDetail assembles the page of the post with the given slug.
// The error wraps repositories.ErrNotFound when no post has that slug.
func (s *PageService) PostDetail(ctx context.Context, slug string) (*Page, error) {
	post, err := s.queries.PostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	comments, err := s.queries.CommentsForPost(ctx, post)
	if err != nil {
		return nil, err
	}
	tags, posts, err := s.sidebar(ctx)
	if err != nil {
		return nil, err
	}

	return s.page(PostDetailTemplate, PostDetailContext{
		Post:             s.serializer.SerializePostDetail(post, comments),
		PopularTags:      tags,
		MostPopularPosts: posts,
	}), nil
}

// TagFilter assembles the listing of posts carrying the tag with the given title.
// The error wraps repositories.ErrNotFound when no tag has that title.
func (s *PageService) TagFilter(ctx context.Context, title string) (*Page, error) {
	tag, err := s.queries.TagByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	tags, popular, err := s.sidebar(ctx)
	if err != nil {
		return nil, err
	}
	related, err := s.queries.PostsForTag(ctx, tag, s.limits.TagPosts)
	if err != nil {
		return nil, err
	}

	return s.page(TagFilterTemplate, TagFilterContext{
		Tag:              tag.Title,
		PopularTags:      tags,
		Posts:            s.serializer.SerializePosts(related),
		MostPopularPosts: popular,
	}), nil
}

// Contacts returns the static contacts page
func (s *PageService) Contacts(ctx context.Context) (*Page, error) {
	return s.page(ContactsTemplate, ContactsContext{}), nil
}

// sidebar loads the popular tags and posts shown next to post and tag pages.
func (s *PageService) sidebar(ctx context.Context) ([]TagView, []PostView, error) {
	tags, err := s.queries.MostPopularTags(ctx, s.limits.Popular)
	if err != nil {
		return nil, nil, err
	}
	posts, err := s.queries.MostPopularPosts(ctx, s.limits.Popular)
	if err != nil {
		return nil, nil, err
	}
	return s.serializer.SerializeTags(tags), s.serializer.SerializePosts(posts), nil
}

func (s *PageService) page(template string, ctx any) *Page {
	s.logger.Debug("page assembled", zap.String("template", template))
	return &Page{Template: template, Context: ctx}
}
