package repositories

import (
	"errors"
	"fmt"
	"os"
	"time"

	"blogfront/app/models"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Dataset is a fixture document. Rows reference each other by their unique
// keys (username, tag title, post slug) rather than by id.
type Dataset struct {
	Authors  []AuthorFixture  `yaml:"authors" validate:"dive"`
	Tags     []TagFixture     `yaml:"tags" validate:"dive"`
	Posts    []PostFixture    `yaml:"posts" validate:"dive"`
	Comments []CommentFixture `yaml:"comments" validate:"dive"`
	Likes    []LikeFixture    `yaml:"likes" validate:"dive"`
}

type AuthorFixture struct {
	Username string `yaml:"username" validate:"required,max=150"`
}

type TagFixture struct {
	Title string `yaml:"title" validate:"required,max=20"`
}

type PostFixture struct {
	Title       string    `yaml:"title" validate:"required,max=200"`
	Slug        string    `yaml:"slug" validate:"required,max=200"`
	Text        string    `yaml:"text"`
	Image       string    `yaml:"image"`
	PublishedAt time.Time `yaml:"published_at" validate:"required"`
	Author      string    `yaml:"author" validate:"required"`
	Tags        []string  `yaml:"tags"`
}

type CommentFixture struct {
	Post        string    `yaml:"post" validate:"required"`
	Author      string    `yaml:"author" validate:"required"`
	Text        string    `yaml:"text" validate:"required"`
	PublishedAt time.Time `yaml:"published_at" validate:"required"`
}

type LikeFixture struct {
	Post   string `yaml:"post" validate:"required"`
	Author string `yaml:"author" validate:"required"`
}

var fixtureValidate = validator.New(validator.WithRequiredStructEnabled())

// LoadDataset reads and validates a YAML fixture file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseDataset(data)
}

// ParseDataset decodes and validates a YAML fixture document.
func ParseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks field constraints, key uniqueness and that every
// reference resolves inside the dataset.
func (ds *Dataset) Validate() error {
	if err := fixtureValidate.Struct(ds); err != nil {
		return fmt.Errorf("invalid fixture: %w", err)
	}

	authors := make(map[string]bool, len(ds.Authors))
	for _, a := range ds.Authors {
		if authors[a.Username] {
			return fmt.Errorf("invalid fixture: duplicate author %q", a.Username)
		}
		authors[a.Username] = true
	}
	tags := make(map[string]bool, len(ds.Tags))
	for _, t := range ds.Tags {
		if tags[t.Title] {
			return fmt.Errorf("invalid fixture: duplicate tag %q", t.Title)
		}
		tags[t.Title] = true
	}
	posts := make(map[string]bool, len(ds.Posts))
	for _, p := range ds.Posts {
		if posts[p.Slug] {
			return fmt.Errorf("invalid fixture: duplicate post slug %q", p.Slug)
		}
		posts[p.Slug] = true
		if !authors[p.Author] {
			return fmt.Errorf("invalid fixture: post %q references unknown author %q", p.Slug, p.Author)
		}
		for _, title := range p.Tags {
			if !tags[title] {
				return fmt.Errorf("invalid fixture: post %q references unknown tag %q", p.Slug, title)
			}
		}
	}
	for _, c := range ds.Comments {
		if !posts[c.Post] {
			return fmt.Errorf("invalid fixture: comment references unknown post %q", c.Post)
		}
		if !authors[c.Author] {
			return fmt.Errorf("invalid fixture: comment references unknown author %q", c.Author)
		}
	}
	liked := make(map[[2]string]bool, len(ds.Likes))
	for _, l := range ds.Likes {
		if !posts[l.Post] || !authors[l.Author] {
			return fmt.Errorf("invalid fixture: like %s/%s references unknown post or author", l.Author, l.Post)
		}
		key := [2]string{l.Author, l.Post}
		if liked[key] {
			return fmt.Errorf("invalid fixture: %q liked %q twice", l.Author, l.Post)
		}
		liked[key] = true
	}
	return nil
}

// rowWriter inserts single rows and assigns their ids.
type rowWriter interface {
	insertAuthor(a *models.Author) error
	insertTag(t *models.Tag) error
	insertPost(p *models.Post) error
	insertComment(c *models.Comment) error
	insertLike(l *models.Like) error
}

// writeTo validates the dataset, then inserts it in dependency order,
// resolving key references to the ids the writer assigns.
func (ds *Dataset) writeTo(w rowWriter) error {
	if ds == nil {
		return errors.New("dataset cannot be nil")
	}
	if err := ds.Validate(); err != nil {
		return err
	}
	authors := make(map[string]*models.Author, len(ds.Authors))
	for _, f := range ds.Authors {
		a := &models.Author{Username: f.Username}
		if err := w.insertAuthor(a); err != nil {
			return fmt.Errorf("insert author %q: %w", f.Username, err)
		}
		authors[f.Username] = a
	}

	tags := make(map[string]*models.Tag, len(ds.Tags))
	for _, f := range ds.Tags {
		t := &models.Tag{Title: f.Title}
		if err := w.insertTag(t); err != nil {
			return fmt.Errorf("insert tag %q: %w", f.Title, err)
		}
		tags[f.Title] = t
	}

	posts := make(map[string]*models.Post, len(ds.Posts))
	for _, f := range ds.Posts {
		p := &models.Post{
			Title:       f.Title,
			Text:        f.Text,
			Slug:        f.Slug,
			Image:       f.Image,
			PublishedAt: f.PublishedAt,
			AuthorID:    authors[f.Author].ID,
		}
		for _, title := range f.Tags {
			if err := p.AddTag(tags[title]); err != nil {
				return err
			}
		}
		if err := w.insertPost(p); err != nil {
			return fmt.Errorf("insert post %q: %w", f.Slug, err)
		}
		posts[f.Slug] = p
	}

	for _, f := range ds.Comments {
		c := &models.Comment{
			Text:        f.Text,
			PublishedAt: f.PublishedAt,
			AuthorID:    authors[f.Author].ID,
			PostID:      posts[f.Post].ID,
		}
		if err := w.insertComment(c); err != nil {
			return fmt.Errorf("insert comment on %q: %w", f.Post, err)
		}
	}

	for _, f := range ds.Likes {
		l := &models.Like{AuthorID: authors[f.Author].ID, PostID: posts[f.Post].ID}
		if err := w.insertLike(l); err != nil {
			return fmt.Errorf("insert like on %q: %w", f.Post, err)
		}
	}
	return nil
}
