package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hyperjump/articles/internal/config"
	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
	"github.com/hyperjump/articles/internal/store"
)

// pagedClient serves a fixed result set through a single cursor and records
// every release.
type pagedClient struct {
	store.Client

	articles    []*models.Article
	pageSize    int
	offset      int
	fetches     int
	invalidAt   int // 1-based page number answered as invalid; 0 never
	errAt       int // 1-based page number answered with a transport error; 0 never
	noCursor    bool
	releases    []string
	releaseErr  error
	lastTimeout time.Duration
}

func newPagedClient(n int) *pagedClient {
	c := &pagedClient{}
	for i := 0; i < n; i++ {
		c.articles = append(c.articles, &models.Article{ID: fmt.Sprintf("a-%03d", i), TotalViews: int64(i)})
	}
	return c
}

func (c *pagedClient) next() (*store.Page, error) {
	c.fetches++
	token := "cursor-1"
	if c.noCursor {
		token = ""
	}
	if c.fetches == c.errAt {
		return nil, errors.New("connection reset")
	}
	if c.fetches == c.invalidAt {
		return &store.Page{CursorToken: token, Diagnostic: "search_context_missing_exception"}, nil
	}
	end := c.offset + c.pageSize
	if end > len(c.articles) {
		end = len(c.articles)
	}
	page := &store.Page{Articles: c.articles[c.offset:end], CursorToken: token, Valid: true}
	c.offset = end
	return page, nil
}

func (c *pagedClient) Query(ctx context.Context, req store.QueryRequest) (*store.Page, error) {
	c.pageSize = req.Limit
	c.lastTimeout = req.CursorTimeout
	return c.next()
}

func (c *pagedClient) ContinueScan(ctx context.Context, timeout time.Duration, token string) (*store.Page, error) {
	if token != "cursor-1" {
		return nil, fmt.Errorf("unexpected token %q", token)
	}
	c.lastTimeout = timeout
	return c.next()
}

func (c *pagedClient) ReleaseScan(ctx context.Context, token string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.releases = append(c.releases, token)
	return c.releaseErr
}

func newScanEngine(c store.Client) *Engine {
	return NewEngine(c,
		&config.SearchConfig{DefaultLimit: 10, TitleLimit: 5, MaxLimit: 100},
		&config.ScanConfig{PageSize: 5, CursorTimeout: time.Minute},
	)
}

func TestScanAll_ReturnsEveryMatchOnce(t *testing.T) {
	const pageSize = 5
	for _, n := range []int{0, 1, pageSize, pageSize + 1, 3 * pageSize} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			c := newPagedClient(n)
			got, err := newScanEngine(c).ScanAll(context.Background(), "articles", query.MatchAll(), pageSize, time.Minute)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != n {
				t.Fatalf("got %d articles, want %d", len(got), n)
			}
			seen := make(map[string]bool)
			for _, a := range got {
				if seen[a.ID] {
					t.Errorf("article %s returned twice", a.ID)
				}
				seen[a.ID] = true
			}
			if len(c.releases) != 1 {
				t.Errorf("releases = %d, want 1", len(c.releases))
			}
			// every full or partial page, then the empty page that ends the scan
			wantFetches := (n+pageSize-1)/pageSize + 1
			if c.fetches != wantFetches {
				t.Errorf("fetches = %d, want %d", c.fetches, wantFetches)
			}
		})
	}
}

func TestScanAll_InvalidPageReleasesOnce(t *testing.T) {
	c := newPagedClient(15)
	c.invalidAt = 2

	got, err := newScanEngine(c).ScanAll(context.Background(), "articles", query.MatchAll(), 5, time.Minute)
	if !errors.Is(err, store.ErrQueryExecution) {
		t.Fatalf("err = %v, want ErrQueryExecution", err)
	}
	if got != nil {
		t.Errorf("got %d articles on failure, want none", len(got))
	}
	if len(c.releases) != 1 || c.releases[0] != "cursor-1" {
		t.Errorf("releases = %v, want [cursor-1]", c.releases)
	}
}

func TestScanAll_TransportErrorReleasesOnce(t *testing.T) {
	c := newPagedClient(15)
	c.errAt = 3

	if _, err := newScanEngine(c).ScanAll(context.Background(), "articles", query.MatchAll(), 5, time.Minute); !errors.Is(err, store.ErrQueryExecution) {
		t.Fatalf("err = %v, want ErrQueryExecution", err)
	}
	if len(c.releases) != 1 {
		t.Errorf("releases = %d, want 1", len(c.releases))
	}
}

func TestScanAll_FirstPageFailureWithoutCursor(t *testing.T) {
	c := newPagedClient(3)
	c.errAt = 1

	if _, err := newScanEngine(c).ScanAll(context.Background(), "articles", query.MatchAll(), 5, time.Minute); err == nil {
		t.Fatal("expected error")
	}
	if len(c.releases) != 0 {
		t.Errorf("releases = %d, want 0 when no cursor was issued", len(c.releases))
	}
}

func TestScanAll_NoCursorIssued(t *testing.T) {
	c := newPagedClient(3)
	c.noCursor = true

	got, err := newScanEngine(c).ScanAll(context.Background(), "articles", query.MatchAll(), 5, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d articles, want 3", len(got))
	}
	if len(c.releases) != 0 {
		t.Errorf("releases = %d, want 0", len(c.releases))
	}
}

func TestScanAll_ReleaseErrorIsNotReturned(t *testing.T) {
	c := newPagedClient(7)
	c.releaseErr = errors.New("cursor already gone")

	got, err := newScanEngine(c).ScanAll(context.Background(), "articles", query.MatchAll(), 5, time.Minute)
	if err != nil {
		t.Fatalf("release failure surfaced: %v", err)
	}
	if len(got) != 7 {
		t.Errorf("got %d articles, want 7", len(got))
	}
}

func TestScanAll_CancelledBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newPagedClient(15)
	engine := newScanEngine(&cancellingClient{pagedClient: c, cancel: cancel})

	got, err := engine.ScanAll(ctx, "articles", query.MatchAll(), 5, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got != nil {
		t.Errorf("got %d articles after cancellation, want none", len(got))
	}
	if len(c.releases) != 1 {
		t.Errorf("releases = %d, want 1 despite cancellation", len(c.releases))
	}
}

// cancellingClient cancels the caller's context right after the first page.
type cancellingClient struct {
	*pagedClient
	cancel context.CancelFunc
}

func (c *cancellingClient) Query(ctx context.Context, req store.QueryRequest) (*store.Page, error) {
	page, err := c.pagedClient.Query(ctx, req)
	c.cancel()
	return page, err
}

func TestScanAll_UsesConfiguredDefaults(t *testing.T) {
	c := newPagedClient(12)

	got, err := newScanEngine(c).ScanAll(context.Background(), "articles", query.MatchAll(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 12 {
		t.Errorf("got %d articles, want 12", len(got))
	}
	if c.pageSize != 5 {
		t.Errorf("page size = %d, want configured 5", c.pageSize)
	}
	if c.lastTimeout != time.Minute {
		t.Errorf("cursor timeout = %v, want configured 1m", c.lastTimeout)
	}
}

func TestScanAll_RejectsMissingSettings(t *testing.T) {
	engine := NewEngine(newPagedClient(1), &config.SearchConfig{DefaultLimit: 10, MaxLimit: 100}, nil)
	if _, err := engine.ScanAll(context.Background(), "articles", query.MatchAll(), 0, time.Minute); err == nil {
		t.Error("expected error for zero page size")
	}
	if _, err := engine.ScanAll(context.Background(), "articles", query.MatchAll(), 5, 0); err == nil {
		t.Error("expected error for zero timeout")
	}
}

func TestScanState_String(t *testing.T) {
	if scanReleased.String() != "released" {
		t.Errorf("String() = %q", scanReleased.String())
	}
	if got := scanState(42).String(); got != "scanState(42)" {
		t.Errorf("String() = %q", got)
	}
}
