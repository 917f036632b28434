package models

import (
	"errors"
	"fmt"
)

// Validate checks if the comment meets all validation requirements
func (c *Comment) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("comment on post %d: %w", c.PostID, err)
	}
	return nil
}

// AuthorName returns the username of the eagerly loaded author.
func (c *Comment) AuthorName() string {
	if c.Author == nil {
		return ""
	}
	return c.Author.Username
}

// SetPost sets the parent post and updates the PostID
func (c *Comment) SetPost(post *Post) error {
	if post == nil {
		return errors.New("post cannot be nil")
	}

	c.Post = post
	c.PostID = post.ID
	return nil
}
