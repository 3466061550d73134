package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
	"github.com/hyperjump/articles/internal/store"
	"go.uber.org/zap"
)

type scanState int

const (
	scanOpening scanState = iota
	scanFetching
	scanExhausted
	scanFailed
	scanReleased
)

func (s scanState) String() string {
	switch s {
	case scanOpening:
		return "opening"
	case scanFetching:
		return "fetching"
	case scanExhausted:
		return "exhausted"
	case scanFailed:
		return "failed"
	case scanReleased:
		return "released"
	}
	return fmt.Sprintf("scanState(%d)", int(s))
}

// scan drains every match of one expression through a server-side cursor.
// Each scan releases its cursor at most once, and only if one was issued.
type scan struct {
	client   store.Client
	logger   *zap.Logger
	index    string
	expr     query.Expression
	pageSize int
	timeout  time.Duration

	state    scanState
	token    string
	pages    int
	articles []*models.Article
	err      error
}

// ScanAll returns every article matching expr by walking a cursor in pages
// of pageSize, each renewing the cursor for pageTimeout. Non-positive
// arguments fall back to the configured scan settings. The cursor is
// released on every exit path; a failure on any page discards all results.
func (e *Engine) ScanAll(ctx context.Context, index string, expr query.Expression, pageSize int, pageTimeout time.Duration) ([]*models.Article, error) {
	if pageSize <= 0 && e.scanConfig != nil {
		pageSize = e.scanConfig.PageSize
	}
	if pageTimeout <= 0 && e.scanConfig != nil {
		pageTimeout = e.scanConfig.CursorTimeout
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: scan page size must be positive", store.ErrQueryExecution)
	}
	if pageTimeout <= 0 {
		return nil, fmt.Errorf("%w: scan cursor timeout must be positive", store.ErrQueryExecution)
	}
	s := &scan{
		client:   e.client,
		logger:   e.logger,
		index:    index,
		expr:     expr,
		pageSize: pageSize,
		timeout:  pageTimeout,
	}
	return s.run(ctx)
}

func (s *scan) run(ctx context.Context) ([]*models.Article, error) {
	defer func() {
		if s.state != scanReleased {
			s.release(ctx)
		}
	}()
	for s.state != scanReleased {
		s.state = s.step(ctx)
	}
	s.logger.Debug("scan finished",
		zap.String("index", s.index),
		zap.Int("pages", s.pages),
		zap.Int("articles", len(s.articles)),
		zap.Error(s.err),
	)
	if s.err != nil {
		return nil, s.err
	}
	return s.articles, nil
}

func (s *scan) step(ctx context.Context) scanState {
	switch s.state {
	case scanOpening:
		return s.open(ctx)
	case scanFetching:
		return s.fetch(ctx)
	case scanExhausted, scanFailed:
		return s.release(ctx)
	}
	return s.fail(fmt.Errorf("scan in unexpected state %s", s.state))
}

func (s *scan) open(ctx context.Context) scanState {
	page, err := s.client.Query(ctx, store.QueryRequest{
		Index:         s.index,
		Expression:    s.expr,
		Limit:         s.pageSize,
		CursorTimeout: s.timeout,
	})
	return s.accept(page, err)
}

func (s *scan) fetch(ctx context.Context) scanState {
	if err := ctx.Err(); err != nil {
		return s.fail(fmt.Errorf("%w: %w", store.ErrQueryExecution, err))
	}
	page, err := s.client.ContinueScan(ctx, s.timeout, s.token)
	return s.accept(page, err)
}

// accept records the cursor carried by page before judging it, so a cursor
// issued alongside an invalid page is still released.
func (s *scan) accept(page *store.Page, err error) scanState {
	if page != nil && page.CursorToken != "" {
		s.token = page.CursorToken
	}
	if err := pageError(page, err); err != nil {
		return s.fail(err)
	}
	s.pages++
	if len(page.Articles) == 0 {
		return scanExhausted
	}
	s.articles = append(s.articles, page.Articles...)
	if s.token == "" {
		// no cursor means the first page was everything
		return scanExhausted
	}
	return scanFetching
}

func (s *scan) fail(err error) scanState {
	if s.err == nil {
		s.err = err
	}
	s.articles = nil
	return scanFailed
}

func (s *scan) release(ctx context.Context) scanState {
	if s.token == "" {
		return scanReleased
	}
	token := s.token
	s.token = ""
	if err := s.client.ReleaseScan(context.WithoutCancel(ctx), token); err != nil {
		s.logger.Warn("failed to release scan cursor",
			zap.String("index", s.index),
			zap.Error(err),
		)
	}
	return scanReleased
}
