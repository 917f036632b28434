package services

import (
	"strings"
	"testing"
	"time"

	"blogfront/app/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestSerializeTag(t *testing.T) {
	s := NewSerializer("/media/")
	got := s.SerializeTag(&models.Tag{ID: 1, Title: "go", PostsCount: 3})
	assert.Equal(t, TagView{Title: "go", PostsWithTag: 3}, got)
}

func TestSerializePost(t *testing.T) {
	published := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	s := NewSerializer("/media/")

	tests := []struct {
		name string
		post *models.Post
		want PostView
	}{
		{
			name: "with image and tags",
			post: &models.Post{
				Title:         "Generics in practice",
				Text:          "Type parameters",
				Slug:          "go-generics",
				Image:         "covers/generics.png",
				PublishedAt:   published,
				Author:        &models.Author{Username: "admin"},
				Tags:          []*models.Tag{{Title: "go", PostsCount: 3}, {Title: "rust", PostsCount: 1}},
				CommentsCount: 2,
			},
			want: PostView{
				Title:          "Generics in practice",
				TeaserText:     "Type parameters",
				Author:         "admin",
				CommentsAmount: 2,
				ImageURL:       ptr("/media/covers/generics.png"),
				PublishedAt:    published,
				Slug:           "go-generics",
				Tags:           []TagView{{Title: "go", PostsWithTag: 3}, {Title: "rust", PostsWithTag: 1}},
				FirstTagTitle:  ptr("go"),
			},
		},
		{
			name: "no image and no tags",
			post: &models.Post{
				Title:       "Untagged notes",
				Text:        "Scratchpad.",
				Slug:        "untagged-notes",
				PublishedAt: published,
				Author:      &models.Author{Username: "critic"},
			},
			want: PostView{
				Title:       "Untagged notes",
				TeaserText:  "Scratchpad.",
				Author:      "critic",
				PublishedAt: published,
				Slug:        "untagged-notes",
				Tags:        []TagView{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, s.SerializePost(tt.post)); diff != "" {
				t.Errorf("SerializePost mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSerializePostDetail(t *testing.T) {
	published := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := NewSerializer("https://cdn.example.com/media")
	post := &models.Post{
		Title:       "Hello, world",
		Text:        "First post on the new blog.",
		Slug:        "hello-world",
		Image:       "hello.jpg",
		PublishedAt: published,
		Author:      &models.Author{Username: "admin"},
		Tags:        []*models.Tag{{Title: "go", PostsCount: 3}},
		LikesCount:  2,
	}

	t.Run("no comments", func(t *testing.T) {
		got := s.SerializePostDetail(post, nil)
		want := PostDetailView{
			Title:       "Hello, world",
			Text:        "First post on the new blog.",
			Author:      "admin",
			Comments:    []CommentView{},
			LikesAmount: 2,
			ImageURL:    ptr("https://cdn.example.com/media/hello.jpg"),
			PublishedAt: published,
			Slug:        "hello-world",
			Tags:        []TagView{{Title: "go", PostsWithTag: 3}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("SerializePostDetail mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("comments keep order", func(t *testing.T) {
		comments := []*models.Comment{
			{Text: "first", PublishedAt: published, Author: &models.Author{Username: "reader"}},
			{Text: "second", PublishedAt: published.Add(time.Hour), Author: &models.Author{Username: "critic"}},
		}
		got := s.SerializePostDetail(post, comments)
		want := []CommentView{
			{Text: "first", PublishedAt: published, Author: "reader"},
			{Text: "second", PublishedAt: published.Add(time.Hour), Author: "critic"},
		}
		if diff := cmp.Diff(want, got.Comments); diff != "" {
			t.Errorf("comments mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestTeaser(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, Teaser(short))

	exact := strings.Repeat("a", TeaserLength)
	assert.Equal(t, exact, Teaser(exact))

	long := strings.Repeat("b", TeaserLength+50)
	assert.Equal(t, strings.Repeat("b", TeaserLength), Teaser(long))

	// counted in characters, not bytes
	cyrillic := strings.Repeat("ж", TeaserLength+1)
	got := Teaser(cyrillic)
	assert.Equal(t, TeaserLength, len([]rune(got)))
	assert.Equal(t, strings.Repeat("ж", TeaserLength), got)
}

func TestResolveMediaURL(t *testing.T) {
	tests := []struct {
		base, name, want string
	}{
		{"/media/", "covers/a.png", "/media/covers/a.png"},
		{"/media", "a.png", "/media/a.png"},
		{"", "a.png", "/a.png"},
		{"https://cdn.example.com/m/", "x/y.jpg", "https://cdn.example.com/m/x/y.jpg"},
		{"/media/", "https://elsewhere.example.com/a.png", "https://elsewhere.example.com/a.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveMediaURL(tt.base, tt.name), "%s + %s", tt.base, tt.name)
	}
}
