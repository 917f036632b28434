package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{
			name: "popular tags",
			plan: Plan{
				Entity:   EntityTag,
				Annotate: []Annotation{PostsCount},
				OrderBy:  []Order{{Field: string(PostsCount), Desc: true}},
				Limit:    5,
			},
		},
		{
			name: "post by slug with preloads",
			plan: Plan{
				Entity:   EntityPost,
				Filters:  []Filter{{Field: FieldSlug, Value: "hello-world"}},
				Annotate: []Annotation{LikesCount},
				Limit:    Unlimited,
				With: []Preload{
					{Relation: RelationAuthor},
					{Relation: RelationTags, Annotate: []Annotation{PostsCount}},
				},
			},
		},
		{
			name:    "missing entity",
			plan:    Plan{Limit: 1},
			wantErr: true,
		},
		{
			name:    "unknown entity",
			plan:    Plan{Entity: "user"},
			wantErr: true,
		},
		{
			name:    "negative limit",
			plan:    Plan{Entity: EntityTag, Limit: -2},
			wantErr: true,
		},
		{
			name:    "filter not defined for entity",
			plan:    Plan{Entity: EntityTag, Filters: []Filter{{Field: FieldSlug, Value: "x"}}},
			wantErr: true,
		},
		{
			name:    "annotation not defined for entity",
			plan:    Plan{Entity: EntityTag, Annotate: []Annotation{LikesCount}},
			wantErr: true,
		},
		{
			name:    "order by annotation that was not requested",
			plan:    Plan{Entity: EntityPost, OrderBy: []Order{{Field: string(LikesCount), Desc: true}}},
			wantErr: true,
		},
		{
			name:    "relation not defined for entity",
			plan:    Plan{Entity: EntityTag, With: []Preload{{Relation: RelationAuthor}}},
			wantErr: true,
		},
		{
			name: "relation annotation not defined",
			plan: Plan{
				Entity: EntityPost,
				With:   []Preload{{Relation: RelationAuthor, Annotate: []Annotation{PostsCount}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlanTruncate(t *testing.T) {
	assert.Equal(t, 3, Plan{Limit: Unlimited}.Truncate(3))
	assert.Equal(t, 0, Plan{Limit: 0}.Truncate(3))
	assert.Equal(t, 2, Plan{Limit: 2}.Truncate(3))
	assert.Equal(t, 3, Plan{Limit: 20}.Truncate(3))
}

func TestPlanPreloads(t *testing.T) {
	plan := Plan{
		Entity: EntityPost,
		With:   []Preload{{Relation: RelationTags, Annotate: []Annotation{PostsCount}}},
	}

	tags, ok := plan.Preloads(RelationTags)
	assert.True(t, ok)
	assert.Equal(t, []Annotation{PostsCount}, tags.Annotate)

	_, ok = plan.Preloads(RelationAuthor)
	assert.False(t, ok)
}

func TestPlanString(t *testing.T) {
	plan := Plan{
		Entity:   EntityPost,
		Filters:  []Filter{{Field: FieldTagID, Value: uint(3)}},
		Annotate: []Annotation{CommentsCount},
		OrderBy:  []Order{{Field: string(FieldPublishedAt), Desc: true}},
		Limit:    20,
		With: []Preload{
			{Relation: RelationAuthor},
			{Relation: RelationTags, Annotate: []Annotation{PostsCount}},
		},
	}

	assert.Equal(t,
		"post where tag_id=3 count comments_count order published_at desc limit 20 with author with tags(posts_count)",
		plan.String())
	assert.Equal(t, "tag", Plan{Entity: EntityTag, Limit: Unlimited}.String())
}
