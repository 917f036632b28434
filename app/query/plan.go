// Package query describes read queries against the blog store as plain data.
//
// A Plan lists filters, count annotations, orderings, a limit and the related
// rows to eager-load. Stores execute plans; the composer only builds them, so
// plans can be inspected and compared without a database.
package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Entity names the primary row type a plan selects.
type Entity string

const (
	EntityPost    Entity = "post"
	EntityTag     Entity = "tag"
	EntityComment Entity = "comment"
)

// Field is a filterable or orderable column.
type Field string

const (
	FieldID          Field = "id"
	FieldSlug        Field = "slug"
	FieldTitle       Field = "title"
	FieldPublishedAt Field = "published_at"
	FieldTagID       Field = "tag_id"
	FieldPostID      Field = "post_id"
)

// Annotation is a count over a related set, attached to each selected row.
type Annotation string

const (
	PostsCount    Annotation = "posts_count"
	CommentsCount Annotation = "comments_count"
	LikesCount    Annotation = "likes_count"
)

// Relation names a related row set to eager-load.
type Relation string

const (
	RelationAuthor Relation = "author"
	RelationTags   Relation = "tags"
)

// Unlimited disables truncation.
const Unlimited = -1

// Filter is an equality predicate.
type Filter struct {
	Field Field `validate:"required"`
	Value any
}

// Order sorts by a field or by an annotation requested on the same plan.
type Order struct {
	Field string `validate:"required"`
	Desc  bool
}

// Preload eager-loads a relation, optionally annotating the related rows.
type Preload struct {
	Relation Relation `validate:"required"`
	Annotate []Annotation
}

// Plan is one read query.
type Plan struct {
	Entity   Entity       `validate:"required,oneof=post tag comment"`
	Filters  []Filter     `validate:"dive"`
	Annotate []Annotation `validate:"dive,required"`
	OrderBy  []Order      `validate:"dive"`
	Limit    int          `validate:"gte=-1"`
	With     []Preload    `validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var (
	filterFields = map[Entity][]Field{
		EntityPost:    {FieldID, FieldSlug, FieldTagID},
		EntityTag:     {FieldID, FieldTitle},
		EntityComment: {FieldID, FieldPostID},
	}
	orderFields = map[Entity][]Field{
		EntityPost:    {FieldID, FieldPublishedAt},
		EntityTag:     {FieldID, FieldTitle},
		EntityComment: {FieldID, FieldPublishedAt},
	}
	annotations = map[Entity][]Annotation{
		EntityPost: {CommentsCount, LikesCount},
		EntityTag:  {PostsCount},
	}
	relations = map[Entity][]Relation{
		EntityPost:    {RelationAuthor, RelationTags},
		EntityComment: {RelationAuthor},
	}
	relationAnnotations = map[Relation][]Annotation{
		RelationTags: {PostsCount},
	}
)

// Validate checks that every filter, annotation, ordering and relation is
// defined for the plan's entity.
func (p Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	for _, f := range p.Filters {
		if !slices.Contains(filterFields[p.Entity], f.Field) {
			return fmt.Errorf("invalid plan: cannot filter %s by %s", p.Entity, f.Field)
		}
	}
	for _, a := range p.Annotate {
		if !slices.Contains(annotations[p.Entity], a) {
			return fmt.Errorf("invalid plan: cannot annotate %s with %s", p.Entity, a)
		}
	}
	for _, o := range p.OrderBy {
		if slices.Contains(orderFields[p.Entity], Field(o.Field)) {
			continue
		}
		if !p.Annotates(Annotation(o.Field)) {
			return fmt.Errorf("invalid plan: cannot order %s by %s", p.Entity, o.Field)
		}
	}
	for _, w := range p.With {
		if !slices.Contains(relations[p.Entity], w.Relation) {
			return fmt.Errorf("invalid plan: %s has no relation %s", p.Entity, w.Relation)
		}
		for _, a := range w.Annotate {
			if !slices.Contains(relationAnnotations[w.Relation], a) {
				return fmt.Errorf("invalid plan: cannot annotate %s with %s", w.Relation, a)
			}
		}
	}
	return nil
}

// Annotates reports whether the plan requests annotation a on its rows.
func (p Plan) Annotates(a Annotation) bool {
	return slices.Contains(p.Annotate, a)
}

// Preloads returns the preload entry for relation r.
func (p Plan) Preloads(r Relation) (Preload, bool) {
	for _, w := range p.With {
		if w.Relation == r {
			return w, true
		}
	}
	return Preload{}, false
}

// Truncate applies the plan's limit to n selected rows.
func (p Plan) Truncate(n int) int {
	if p.Limit == Unlimited || p.Limit > n {
		return n
	}
	return p.Limit
}

// String renders the plan as a single line, for logs.
func (p Plan) String() string {
	var b strings.Builder
	b.WriteString(string(p.Entity))
	for _, f := range p.Filters {
		fmt.Fprintf(&b, " where %s=%v", f.Field, f.Value)
	}
	for _, a := range p.Annotate {
		fmt.Fprintf(&b, " count %s", a)
	}
	for _, o := range p.OrderBy {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		fmt.Fprintf(&b, " order %s %s", o.Field, dir)
	}
	if p.Limit != Unlimited {
		fmt.Fprintf(&b, " limit %d", p.Limit)
	}
	for _, w := range p.With {
		fmt.Fprintf(&b, " with %s", w.Relation)
		for _, a := range w.Annotate {
			fmt.Fprintf(&b, "(%s)", a)
		}
	}
	return b.String()
}
