// Package indexer provisions article indices and writes article batches into them.
package indexer

import (
	"context"
	"fmt"

	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/store"
	"go.uber.org/zap"
)

// Indexer drives the write path of the document store.
type Indexer struct {
	client store.Client
	logger *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (index created, batch written, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer writing through client.
func NewIndexer(client store.Client, opts ...IndexerOption) *Indexer {
	idx := &Indexer{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// EnsureIndex creates the index when it does not exist yet. Failures are not
// retried and wrap store.ErrProvisioning.
func (idx *Indexer) EnsureIndex(ctx context.Context, name string) error {
	exists, err := idx.client.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: check %s: %v", store.ErrProvisioning, name, err)
	}
	if exists {
		return nil
	}
	if err := idx.client.CreateIndex(ctx, name); err != nil {
		return fmt.Errorf("%w: create %s: %v", store.ErrProvisioning, name, err)
	}
	idx.logger.Debug("index provisioned", zap.String("index", name))
	return nil
}

// UpsertAll writes articles to the index in one bulk request: each article is
// inserted, or replaces the stored article with the same id entirely. The
// batch is accepted or rejected as a whole; a rejection wraps store.ErrIngest
// and carries the store diagnostic. An empty batch is a no-op.
func (idx *Indexer) UpsertAll(ctx context.Context, name string, articles []*models.Article) (*store.BulkResponse, error) {
	if len(articles) == 0 {
		return &store.BulkResponse{Valid: true}, nil
	}
	resp, err := idx.client.BulkUpsert(ctx, name, articles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrIngest, err)
	}
	if resp == nil || !resp.Valid {
		diagnostic := "no response"
		if resp != nil {
			diagnostic = resp.Diagnostic
		}
		return resp, fmt.Errorf("%w: %s", store.ErrIngest, diagnostic)
	}
	idx.logger.Debug("articles upserted", zap.String("index", name), zap.Int("count", len(resp.Items)))
	return resp, nil
}
