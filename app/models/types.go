package models

import "time"

// Author is the user a post, comment or like belongs to.
type Author struct {
	ID       uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	Username string `gorm:"uniqueIndex;size:150;not null" json:"username" yaml:"username" validate:"required,max=150"`
}

// Post represents a published blog post.
//
// CommentsCount and LikesCount are read-only annotations filled by the store
// when the query asks for them; they are never written back.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title" validate:"required,max=200"`
	Text        string    `gorm:"type:text" json:"text"`
	Slug        string    `gorm:"uniqueIndex;size:200;not null" json:"slug" validate:"required,max=200"`
	Image       string    `gorm:"size:255" json:"image,omitempty"`
	PublishedAt time.Time `gorm:"index;not null" json:"published_at" validate:"required"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`

	Author   *Author    `gorm:"foreignKey:AuthorID" json:"-" validate:"-"`
	Tags     []*Tag     `gorm:"many2many:post_tags" json:"-" validate:"-"`
	Comments []*Comment `gorm:"foreignKey:PostID" json:"-" validate:"-"`
	Likes    []*Like    `gorm:"foreignKey:PostID" json:"-" validate:"-"`

	CommentsCount int `gorm:"->;-:migration;column:comments_count" json:"-" validate:"-"`
	LikesCount    int `gorm:"->;-:migration;column:likes_count" json:"-" validate:"-"`
}

// Tag groups posts by topic. Titles are unique.
type Tag struct {
	ID    uint    `gorm:"primaryKey" json:"id"`
	Title string  `gorm:"uniqueIndex;size:20;not null" json:"title" validate:"required,max=20"`
	Posts []*Post `gorm:"many2many:post_tags" json:"-" validate:"-"`

	PostsCount int `gorm:"->;-:migration;column:posts_count" json:"-" validate:"-"`
}

// Comment represents a comment on a blog post.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Text        string    `gorm:"type:text;not null" json:"text" validate:"required"`
	PublishedAt time.Time `gorm:"index;not null" json:"published_at" validate:"required"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	PostID      uint      `gorm:"not null;index" json:"post_id"`

	Author *Author `gorm:"foreignKey:AuthorID" json:"-" validate:"-"`
	Post   *Post   `gorm:"foreignKey:PostID" json:"-" validate:"-"`
}

// Like records that a user liked a post. Only the count per post matters.
type Like struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	AuthorID uint `gorm:"not null;uniqueIndex:idx_like_author_post" json:"author_id"`
	PostID   uint `gorm:"not null;uniqueIndex:idx_like_author_post;index" json:"post_id"`
}
