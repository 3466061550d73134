// Package search runs composed article queries as bounded pages, exhaustive
// scans and view aggregations.
package search

import (
	"context"
	"fmt"

	"github.com/hyperjump/articles/internal/config"
	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
	"github.com/hyperjump/articles/internal/store"
	"go.uber.org/zap"
)

// Engine executes queries against a document store. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	client     store.Client
	config     *config.SearchConfig
	scanConfig *config.ScanConfig
	logger     *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output and release failures.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine reading through client.
func NewEngine(client store.Client, cfg *config.SearchConfig, scanCfg *config.ScanConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		client:     client,
		config:     cfg,
		scanConfig: scanCfg,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns one page of at most limit articles matching expr, ordered by
// sort (publish date descending when unset). No cursor is kept.
func (e *Engine) Search(ctx context.Context, index string, expr query.Expression, sort models.Sort, offset, limit int) ([]*models.Article, error) {
	offset, limit, err := ProcessPage(e.config, offset, limit)
	if err != nil {
		return nil, err
	}
	if sort.IsZero() {
		sort = models.DefaultSort
	}
	e.logger.Debug("search request",
		zap.String("index", index),
		zap.Stringer("expression", expr),
		zap.Int("offset", offset),
		zap.Int("limit", limit),
	)
	page, err := e.client.Query(ctx, store.QueryRequest{
		Index:      index,
		Expression: expr,
		Sort:       sort,
		Offset:     offset,
		Limit:      limit,
	})
	if err := pageError(page, err); err != nil {
		return nil, err
	}
	return page.Articles, nil
}

// Get returns the article stored under id.
func (e *Engine) Get(ctx context.Context, index, id string) (*models.Article, error) {
	return e.client.Get(ctx, index, id)
}

// pageError maps a failed or invalid page onto ErrQueryExecution.
func pageError(page *store.Page, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrQueryExecution, err)
	}
	if page == nil {
		return fmt.Errorf("%w: no response", store.ErrQueryExecution)
	}
	if !page.Valid {
		return fmt.Errorf("%w: %s", store.ErrQueryExecution, page.Diagnostic)
	}
	return nil
}
