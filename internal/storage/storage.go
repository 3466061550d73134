// Package storage persists the source rows of indexed articles.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/articles/internal/models"
)

// ErrNotFound is returned when no row exists for an index and id.
var ErrNotFound = errors.New("article not found")

// Storage defines article row persistence, partitioned by index name.
type Storage interface {
	// UpsertArticles writes every article as a full replacement inside one
	// transaction. apply runs after the rows are written and before commit;
	// an apply error rolls the transaction back. A commit failure after apply
	// succeeded also rolls back, leaving whatever apply changed for the caller
	// to undo. The returned set holds the ids that existed before the write.
	UpsertArticles(ctx context.Context, index string, articles []*models.Article, apply func() error) (map[string]bool, error)
	GetArticle(ctx context.Context, index, id string) (*models.Article, error)
	// GetArticles returns the rows found for ids, keyed by id.
	GetArticles(ctx context.Context, index string, ids []string) (map[string]*models.Article, error)
	// SumField returns the sum and the number of non-null values of a numeric field over ids.
	SumField(ctx context.Context, index string, field models.Field, ids []string) (float64, int64, error)
	CountArticles(ctx context.Context, index string) (int64, error)

	Close() error
}
