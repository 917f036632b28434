package services

import (
	"net/url"
	"strings"
	"time"

	"blogfront/app/models"
)

// TeaserLength is the number of characters of post text shown in listings.
const TeaserLength = 200

// TagView is the serialized form of a tag
type TagView struct {
	Title        string `json:"title"`
	PostsWithTag int    `json:"posts_with_tag"`
}

// PostView is the serialized form of a post in listings.
//
// ImageURL and FirstTagTitle are nil when the post has no image or no tags.
type PostView struct {
	Title          string    `json:"title"`
	TeaserText     string    `json:"teaser_text"`
	Author         string    `json:"author"`
	CommentsAmount int       `json:"comments_amount"`
	ImageURL       *string   `json:"image_url"`
	PublishedAt    time.Time `json:"published_at"`
	Slug           string    `json:"slug"`
	Tags           []TagView `json:"tags"`
	FirstTagTitle  *string   `json:"first_tag_title"`
}

// CommentView is the serialized form of a comment
type CommentView struct {
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
	Author      string    `json:"author"`
}

// PostDetailView is the serialized form of a post on its own page
type PostDetailView struct {
	Title       string        `json:"title"`
	Text        string        `json:"text"`
	Author      string        `json:"author"`
	Comments    []CommentView `json:"comments"`
	LikesAmount int           `json:"likes_amount"`
	ImageURL    *string       `json:"image_url"`
	PublishedAt time.Time     `json:"published_at"`
	Slug        string        `json:"slug"`
	Tags        []TagView     `json:"tags"`
}

// Serializer maps fetched rows into view structs. It only reads relations
// and annotations that the queries already loaded.
type Serializer struct {
	MediaURL string
}

// NewSerializer creates a serializer resolving images against mediaURL
func NewSerializer(mediaURL string) *Serializer {
	return &Serializer{MediaURL: mediaURL}
}

// SerializeTag maps a tag annotated with its post count.
func (s *Serializer) SerializeTag(tag *models.Tag) TagView {
	return TagView{Title: tag.Title, PostsWithTag: tag.PostsCount}
}

// SerializeTags maps a list of tags, never returning nil.
func (s *Serializer) SerializeTags(tags []*models.Tag) []TagView {
	views := make([]TagView, 0, len(tags))
	for _, t := range tags {
		views = append(views, s.SerializeTag(t))
	}
	return views
}

// SerializePost maps a post annotated with its comment count.
func (s *Serializer) SerializePost(post *models.Post) PostView {
	view := PostView{
		Title:          post.Title,
		TeaserText:     Teaser(post.Text),
		Author:         post.AuthorName(),
		CommentsAmount: post.CommentsCount,
		ImageURL:       s.imageURL(post),
		PublishedAt:    post.PublishedAt,
		Slug:           post.Slug,
		Tags:           s.SerializeTags(post.Tags),
	}
	if first := post.FirstTag(); first != nil {
		title := first.Title
		view.FirstTagTitle = &title
	}
	return view
}

// SerializePosts maps a list of posts, never returning nil.
func (s *Serializer) SerializePosts(posts []*models.Post) []PostView {
	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, s.SerializePost(p))
	}
	return views
}

// SerializeComment maps a comment with its author attached
func (s *Serializer) SerializeComment(comment *models.Comment) CommentView {
	return CommentView{
		Text:        comment.Text,
		PublishedAt: comment.PublishedAt,
		Author:      comment.AuthorName(),
	}
}

// SerializePostDetail maps a post annotated with its like count together
// with its comments.
func (s *Serializer) SerializePostDetail(post *models.Post, comments []*models.Comment) PostDetailView {
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, s.SerializeComment(c))
	}
	return PostDetailView{
		Title:       post.Title,
		Text:        post.Text,
		Author:      post.AuthorName(),
		Comments:    views,
		LikesAmount: post.LikesCount,
		ImageURL:    s.imageURL(post),
		PublishedAt: post.PublishedAt,
		Slug:        post.Slug,
		Tags:        s.SerializeTags(post.Tags),
	}
}

func (s *Serializer) imageURL(post *models.Post) *string {
	if !post.HasImage() {
		return nil
	}
	u := ResolveMediaURL(s.MediaURL, post.Image)
	return &u
}

// ResolveMediaURL joins a stored relative media path onto the media base URL.
// Absolute URLs are returned unchanged.
func ResolveMediaURL(base, name string) string {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name
	}
	if base == "" {
		base = "/"
	}
	u, err := url.JoinPath(base, name)
	if err != nil {
		return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(name, "/")
	}
	return u
}

// Teaser returns the first TeaserLength characters of text.
func Teaser(text string) string {
	runes := []rune(text)
	if len(runes) <= TeaserLength {
		return text
	}
	return string(runes[:TeaserLength])
}
