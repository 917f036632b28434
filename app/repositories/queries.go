package repositories

import (
	"context"
	"errors"
	"fmt"

	"blogfront/app/metrics"
	"blogfront/app/models"
	"blogfront/app/query"

	"go.uber.org/zap"
)

// Queries composes the read queries the blog pages need. Every query
// eager-loads what serialization touches, so no view triggers extra round
// trips to the store.
type Queries struct {
	store  Store
	logger *zap.Logger
}

// NewQueries creates a new Queries over the given store
func NewQueries(store Store, logger *zap.Logger) *Queries {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queries{store: store, logger: logger}
}

func withAuthor() query.Preload {
	return query.Preload{Relation: query.RelationAuthor}
}

func withCountedTags() query.Preload {
	return query.Preload{Relation: query.RelationTags, Annotate: []query.Annotation{query.PostsCount}}
}

// MostPopularTagsPlan selects tags by descending post count.
func MostPopularTagsPlan(limit int) query.Plan {
	return query.Plan{
		Entity:   query.EntityTag,
		Annotate: []query.Annotation{query.PostsCount},
		OrderBy:  []query.Order{{Field: string(query.PostsCount), Desc: true}},
		Limit:    limit,
	}
}

// MostPopularPostsPlan selects posts by descending like count.
func MostPopularPostsPlan(limit int) query.Plan {
	return query.Plan{
		Entity:   query.EntityPost,
		Annotate: []query.Annotation{query.LikesCount, query.CommentsCount},
		OrderBy:  []query.Order{{Field: string(query.LikesCount), Desc: true}},
		Limit:    limit,
		With:     []query.Preload{withAuthor(), withCountedTags()},
	}
}

// MostRecentPostsPlan selects the newest posts first.
func MostRecentPostsPlan(limit int) query.Plan {
	return query.Plan{
		Entity:   query.EntityPost,
		Annotate: []query.Annotation{query.CommentsCount},
		OrderBy:  []query.Order{{Field: string(query.FieldPublishedAt), Desc: true}},
		Limit:    limit,
		With:     []query.Preload{withAuthor(), withCountedTags()},
	}
}

// PostBySlugPlan fetches up to two rows so duplicates can be detected.
func PostBySlugPlan(slug string) query.Plan {
	return query.Plan{
		Entity:   query.EntityPost,
		Filters:  []query.Filter{{Field: query.FieldSlug, Value: slug}},
		Annotate: []query.Annotation{query.LikesCount, query.CommentsCount},
		Limit:    2,
		With:     []query.Preload{withAuthor(), withCountedTags()},
	}
}

// CommentsForPostPlan selects every comment of a post, oldest first.
func CommentsForPostPlan(postID uint) query.Plan {
	return query.Plan{
		Entity:  query.EntityComment,
		Filters: []query.Filter{{Field: query.FieldPostID, Value: postID}},
		OrderBy: []query.Order{{Field: string(query.FieldPublishedAt)}},
		Limit:   query.Unlimited,
		With:    []query.Preload{withAuthor()},
	}
}

// TagByTitlePlan fetches up to two rows so duplicates can be detected.
func TagByTitlePlan(title string) query.Plan {
	return query.Plan{
		Entity:  query.EntityTag,
		Filters: []query.Filter{{Field: query.FieldTitle, Value: title}},
		Limit:   2,
	}
}

// PostsForTagPlan selects the newest posts carrying a tag.
func PostsForTagPlan(tagID uint, limit int) query.Plan {
	return query.Plan{
		Entity:   query.EntityPost,
		Filters:  []query.Filter{{Field: query.FieldTagID, Value: tagID}},
		Annotate: []query.Annotation{query.CommentsCount},
		OrderBy:  []query.Order{{Field: string(query.FieldPublishedAt), Desc: true}},
		Limit:    limit,
		With:     []query.Preload{withAuthor(), withCountedTags()},
	}
}

// MostPopularTags returns up to limit tags with the most posts, annotated with their post count.
func (q *Queries) MostPopularTags(ctx context.Context, limit int) ([]*models.Tag, error) {
	return run(ctx, q, MostPopularTagsPlan(limit), q.store.FindTags)
}

// MostPopularPosts returns up to limit posts with the most likes.
func (q *Queries) MostPopularPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	return run(ctx, q, MostPopularPostsPlan(limit), q.store.FindPosts)
}

// MostRecentPosts returns up to limit posts, newest first.
func (q *Queries) MostRecentPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	return run(ctx, q, MostRecentPostsPlan(limit), q.store.FindPosts)
}

// PostBySlug returns the single post with the given slug.
func (q *Queries) PostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	posts, err := run(ctx, q, PostBySlugPlan(slug), q.store.FindPosts)
	if err != nil {
		return nil, err
	}
	return single(posts, "post", slug)
}

// CommentsForPost returns every comment of the post with its author attached.
func (q *Queries) CommentsForPost(ctx context.Context, post *models.Post) ([]*models.Comment, error) {
	if post == nil {
		return nil, errors.New("post cannot be nil")
	}
	return run(ctx, q, CommentsForPostPlan(post.ID), q.store.FindComments)
}

// TagByTitle returns the single tag with the given title.
func (q *Queries) TagByTitle(ctx context.Context, title string) (*models.Tag, error) {
	tags, err := run(ctx, q, TagByTitlePlan(title), q.store.FindTags)
	if err != nil {
		return nil, err
	}
	return single(tags, "tag", title)
}

// PostsForTag returns up to limit posts carrying the tag.
func (q *Queries) PostsForTag(ctx context.Context, tag *models.Tag, limit int) ([]*models.Post, error) {
	if tag == nil {
		return nil, errors.New("tag cannot be nil")
	}
	return run(ctx, q, PostsForTagPlan(tag.ID, limit), q.store.FindPosts)
}

func run[T any](ctx context.Context, q *Queries, plan query.Plan, find func(context.Context, query.Plan) ([]T, error)) ([]T, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	rows, err := find(ctx, plan)
	if err != nil {
		metrics.StoreQueries.WithLabelValues(string(plan.Entity), "error").Inc()
		q.logger.Error("query failed", zap.Stringer("plan", plan), zap.Error(err))
		return nil, fmt.Errorf("query %s: %w", plan.Entity, err)
	}
	metrics.StoreQueries.WithLabelValues(string(plan.Entity), "ok").Inc()
	q.logger.Debug("query", zap.Stringer("plan", plan), zap.Int("rows", len(rows)))
	return rows, nil
}

func single[T any](rows []*T, kind, key string) (*T, error) {
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("%s %q: %w", kind, key, ErrNotFound)
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%s %q: %w", kind, key, ErrIntegrity)
	}
}
