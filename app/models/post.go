package models

import (
	"errors"
	"fmt"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("post %q: %w", p.Slug, err)
	}
	return nil
}

// HasImage reports whether an image is attached to the post.
func (p *Post) HasImage() bool {
	return p.Image != ""
}

// AuthorName returns the username of the eagerly loaded author.
func (p *Post) AuthorName() string {
	if p.Author == nil {
		return ""
	}
	return p.Author.Username
}

// FirstTag returns the first attached tag, or nil when the post has none.
func (p *Post) FirstTag() *Tag {
	if len(p.Tags) == 0 {
		return nil
	}
	return p.Tags[0]
}

// AddTag attaches a tag to the post
func (p *Post) AddTag(tag *Tag) error {
	if tag == nil {
		return errors.New("tag cannot be nil")
	}
	for _, t := range p.Tags {
		if t.ID == tag.ID && t.Title == tag.Title {
			return nil
		}
	}
	p.Tags = append(p.Tags, tag)
	return nil
}
