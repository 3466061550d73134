package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/articles/internal/keyword"
	"github.com/hyperjump/articles/internal/store"
	"go.uber.org/zap"
)

// defaultPageSize applies when a query does not set a limit.
const defaultPageSize = 10

// scroll is the server-side state of one open scan.
type scroll struct {
	mu      sync.Mutex
	index   string
	request keyword.SearchRequest
	expires time.Time
	done    bool
}

func invalidPage(format string, args ...any) *store.Page {
	return &store.Page{Diagnostic: fmt.Sprintf(format, args...)}
}

// Query implements store.Client.
func (s *Store) Query(ctx context.Context, req store.QueryRequest) (*store.Page, error) {
	idx, err := s.lookup(req.Index)
	if errors.Is(err, store.ErrNoSuchIndex) {
		return invalidPage("%v", err), nil
	}
	if err != nil {
		return nil, err
	}
	if err := req.Expression.Validate(); err != nil {
		return invalidPage("invalid query: %v", err), nil
	}
	if req.Offset < 0 {
		return invalidPage("offset must not be negative, got %d", req.Offset), nil
	}
	size := req.Limit
	if size <= 0 {
		size = defaultPageSize
	}
	search := keyword.SearchRequest{Query: req.Expression, Sort: req.Sort, From: req.Offset, Size: size}

	if req.CursorTimeout <= 0 {
		res, err := idx.Search(ctx, search)
		if err != nil {
			return invalidPage("%v", err), nil
		}
		articles, err := s.hydrate(ctx, req.Index, res.Hits)
		if err != nil {
			return nil, err
		}
		return &store.Page{Articles: articles, Valid: true}, nil
	}

	if req.Offset > 0 {
		return invalidPage("offset is not supported when opening a scan"), nil
	}
	s.sweepExpired()
	sc := &scroll{index: req.Index, request: search}
	page, err := s.advance(ctx, idx, sc, req.CursorTimeout)
	if err != nil || !page.Valid {
		return page, err
	}
	token := uuid.New().String()
	s.mu.Lock()
	s.scrolls[token] = sc
	s.mu.Unlock()
	page.CursorToken = token
	s.logger.Debug("scan opened", zap.String("index", req.Index), zap.Duration("timeout", req.CursorTimeout))
	return page, nil
}

// ContinueScan implements store.Client. Once a scan has returned an empty page
// every further continuation is empty as well.
func (s *Store) ContinueScan(ctx context.Context, timeout time.Duration, token string) (*store.Page, error) {
	s.mu.Lock()
	sc, ok := s.scrolls[token]
	s.mu.Unlock()
	if !ok {
		return invalidPage("%v: %s", store.ErrNoSuchScan, token), nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if s.now().After(sc.expires) {
		s.drop(token)
		return invalidPage("scan %s expired", token), nil
	}
	idx, err := s.lookup(sc.index)
	if err != nil {
		return invalidPage("%v", err), nil
	}
	page, err := s.advance(ctx, idx, sc, timeout)
	if err != nil || !page.Valid {
		return page, err
	}
	page.CursorToken = token
	return page, nil
}

// advance fetches the page after sc's last hit and renews its keep-alive.
// sc.mu must be held unless sc is not yet registered.
func (s *Store) advance(ctx context.Context, idx *keyword.BleveIndex, sc *scroll, timeout time.Duration) (*store.Page, error) {
	if timeout > 0 {
		sc.expires = s.now().Add(timeout)
	}
	if sc.done {
		return &store.Page{Valid: true}, nil
	}
	res, err := idx.Search(ctx, sc.request)
	if err != nil {
		return invalidPage("%v", err), nil
	}
	if len(res.Hits) == 0 {
		sc.done = true
		return &store.Page{Valid: true}, nil
	}
	sc.request.After = res.Hits[len(res.Hits)-1].Sort
	sc.request.From = 0
	articles, err := s.hydrate(ctx, sc.index, res.Hits)
	if err != nil {
		return nil, err
	}
	return &store.Page{Articles: articles, Valid: true}, nil
}

// ReleaseScan implements store.Client.
func (s *Store) ReleaseScan(ctx context.Context, token string) error {
	if !s.drop(token) {
		return fmt.Errorf("%w: %s", store.ErrNoSuchScan, token)
	}
	s.logger.Debug("scan released", zap.String("token", token))
	return nil
}

// OpenScans returns the number of registered scans, expired ones included until swept.
func (s *Store) OpenScans() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scrolls)
}

func (s *Store) drop(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scrolls[token]; !ok {
		return false
	}
	delete(s.scrolls, token)
	return true
}

func (s *Store) sweepExpired() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sc := range s.scrolls {
		// A scan being advanced holds its lock; skip it rather than wait.
		if !sc.mu.TryLock() {
			continue
		}
		expired := now.After(sc.expires)
		sc.mu.Unlock()
		if expired {
			delete(s.scrolls, token)
			s.logger.Debug("scan expired", zap.String("token", token))
		}
	}
}
