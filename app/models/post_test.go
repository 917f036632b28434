package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostValidation(t *testing.T) {
	tests := []struct {
		name    string
		post    *Post
		wantErr bool
	}{
		{
			name: "valid post",
			post: &Post{
				Title:       "Valid Title",
				Text:        "Some body text",
				Slug:        "valid-title",
				PublishedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name: "missing slug",
			post: &Post{
				Title:       "Valid Title",
				PublishedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "missing title",
			post: &Post{
				Slug:        "no-title",
				PublishedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "zero publication time",
			post: &Post{
				Title: "Valid Title",
				Slug:  "valid-title",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostFirstTag(t *testing.T) {
	post := &Post{Title: "Test Post", Slug: "test-post"}
	assert.Nil(t, post.FirstTag())

	gopher := &Tag{ID: 1, Title: "go"}
	rust := &Tag{ID: 2, Title: "rust"}
	assert.NoError(t, post.AddTag(gopher))
	assert.NoError(t, post.AddTag(rust))
	assert.NoError(t, post.AddTag(gopher))

	assert.Len(t, post.Tags, 2)
	assert.Equal(t, "go", post.FirstTag().Title)
	assert.Error(t, post.AddTag(nil))
}

func TestPostAuthorAndImage(t *testing.T) {
	post := &Post{}
	assert.Equal(t, "", post.AuthorName())
	assert.False(t, post.HasImage())

	post.Author = &Author{Username: "admin"}
	post.Image = "covers/hello.png"
	assert.Equal(t, "admin", post.AuthorName())
	assert.True(t, post.HasImage())
}
