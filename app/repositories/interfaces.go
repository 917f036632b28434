package repositories

import (
	"context"
	"errors"

	"blogfront/app/models"
	"blogfront/app/query"
)

var (
	// ErrNotFound is returned when a lookup by unique key matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrIntegrity is returned when a lookup by unique key matches more than one row.
	ErrIntegrity = errors.New("unique key matched more than one record")
	// ErrDuplicate is returned when a write would reuse a unique key.
	ErrDuplicate = errors.New("unique key already exists")
)

// Store executes read-only query plans.
type Store interface {
	FindPosts(ctx context.Context, plan query.Plan) ([]*models.Post, error)
	FindTags(ctx context.Context, plan query.Plan) ([]*models.Tag, error)
	FindComments(ctx context.Context, plan query.Plan) ([]*models.Comment, error)
}

// Importer loads a fixture dataset into a store.
type Importer interface {
	Import(ctx context.Context, ds *Dataset) error
}
