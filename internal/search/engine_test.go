package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hyperjump/articles/internal/config"
	"github.com/hyperjump/articles/internal/docstore"
	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
	"github.com/hyperjump/articles/internal/storage"
	"github.com/hyperjump/articles/internal/store"
	"go.uber.org/zap"
)

const testIndex = "articles"

func newTestEngine(t *testing.T, articles ...*models.Article) (*Engine, *docstore.Store) {
	t.Helper()
	rows, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	ds := docstore.New(rows, "")
	t.Cleanup(func() {
		_ = ds.Close()
		_ = rows.Close()
	})
	ctx := context.Background()
	if err := ds.CreateIndex(ctx, testIndex); err != nil {
		t.Fatal(err)
	}
	if len(articles) > 0 {
		resp, err := ds.BulkUpsert(ctx, testIndex, articles)
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Valid {
			t.Fatalf("bulk upsert rejected: %s", resp.Diagnostic)
		}
	}
	engine := NewEngine(ds,
		&config.SearchConfig{DefaultLimit: 10, TitleLimit: 5, MaxLimit: 20},
		&config.ScanConfig{PageSize: 3, CursorTimeout: time.Minute},
		WithLogger(zap.NewNop()),
	)
	return engine, ds
}

func corpus(n int) []*models.Article {
	base := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	out := make([]*models.Article, 0, n)
	for i := 0; i < n; i++ {
		a := &models.Article{
			ID:          fmt.Sprintf("art-%02d", i),
			Title:       fmt.Sprintf("Go notes %d", i),
			Author:      "Ana",
			PublishDate: base.Add(time.Duration(i) * 24 * time.Hour),
			TotalViews:  int64(i * 10),
		}
		if i%2 == 0 {
			a.Content = "the quick brown fox"
		}
		if i%3 == 0 {
			a.Author = "Bruno"
		}
		out = append(out, a)
	}
	return out
}

func ids(articles []*models.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return out
}

func TestEngine_SearchDefaultSortIsNewestFirst(t *testing.T) {
	engine, _ := newTestEngine(t, corpus(6)...)

	got, err := engine.Search(context.Background(), testIndex, query.MatchAll(), models.Sort{}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 {
		t.Fatalf("got %d articles, want 6", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].PublishDate.After(got[i-1].PublishDate) {
			t.Errorf("results not newest first: %v", ids(got))
			break
		}
	}
}

func TestEngine_SearchLimits(t *testing.T) {
	engine, _ := newTestEngine(t, corpus(25)...)
	ctx := context.Background()

	got, err := engine.Search(ctx, testIndex, query.MatchAll(), models.DefaultSort, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Errorf("default limit: got %d, want 10", len(got))
	}

	got, err = engine.Search(ctx, testIndex, query.MatchAll(), models.DefaultSort, 0, 500)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 {
		t.Errorf("capped limit: got %d, want 20", len(got))
	}

	got, err = engine.Search(ctx, testIndex, query.MatchAll(), models.Sort{Field: models.FieldTotalViews}, 22, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "art-22" {
		t.Errorf("offset page: got %v, want [art-22 art-23 art-24]", ids(got))
	}

	if _, err := engine.Search(ctx, testIndex, query.MatchAll(), models.DefaultSort, -1, 5); err == nil {
		t.Error("expected error for negative offset")
	}
}

func TestEngine_SearchSubsetWhenNarrowed(t *testing.T) {
	engine, _ := newTestEngine(t, corpus(12)...)
	ctx := context.Background()

	broad := query.Compose(query.Filters{RequireContent: true})
	narrow := query.Compose(query.Filters{RequireContent: true, AuthorExact: "Bruno"})

	all, err := engine.ScanAll(ctx, testIndex, broad, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	some, err := engine.ScanAll(ctx, testIndex, narrow, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 6 {
		t.Fatalf("broad scan: got %d, want 6", len(all))
	}
	in := make(map[string]bool, len(all))
	for _, a := range all {
		in[a.ID] = true
	}
	for _, a := range some {
		if !in[a.ID] {
			t.Errorf("%s matched the narrower filter but not the broader one", a.ID)
		}
		if a.Author != "Bruno" || a.Content == "" {
			t.Errorf("%s does not satisfy the narrow filter: %+v", a.ID, a)
		}
	}
	if len(some) != 2 {
		t.Errorf("narrow scan: got %v, want art-00 and art-06", ids(some))
	}
}

func TestEngine_ScanAllReleasesCursor(t *testing.T) {
	engine, ds := newTestEngine(t, corpus(10)...)

	got, err := engine.ScanAll(context.Background(), testIndex, query.MatchAll(), 3, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Errorf("got %d articles, want 10", len(got))
	}
	if n := ds.OpenScans(); n != 0 {
		t.Errorf("open scans after ScanAll = %d, want 0", n)
	}
}

func TestEngine_SearchUnknownIndex(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Search(context.Background(), "missing", query.MatchAll(), models.DefaultSort, 0, 5)
	if !errors.Is(err, store.ErrQueryExecution) {
		t.Errorf("err = %v, want ErrQueryExecution", err)
	}
	_, err = engine.ScanAll(context.Background(), "missing", query.MatchAll(), 3, time.Minute)
	if !errors.Is(err, store.ErrQueryExecution) {
		t.Errorf("scan err = %v, want ErrQueryExecution", err)
	}
}

func TestEngine_Get(t *testing.T) {
	engine, _ := newTestEngine(t, corpus(2)...)

	a, err := engine.Get(context.Background(), testIndex, "art-01")
	if err != nil {
		t.Fatal(err)
	}
	if a.Title != "Go notes 1" {
		t.Errorf("Title = %q", a.Title)
	}
	if _, err := engine.Get(context.Background(), testIndex, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestProcessPage_WithoutConfig(t *testing.T) {
	off, lim, err := ProcessPage(nil, 3, 500)
	if err != nil || off != 3 || lim != 500 {
		t.Errorf("ProcessPage(nil, 3, 500) = %d, %d, %v", off, lim, err)
	}
	if _, _, err := ProcessPage(nil, 0, 0); err == nil {
		t.Error("expected error for zero limit without a default")
	}
}

func TestEngine_SearchWithoutConfig(t *testing.T) {
	_, ds := newTestEngine(t, corpus(4)...)
	engine := NewEngine(ds, nil, nil)

	got, err := engine.Search(context.Background(), testIndex, query.MatchAll(), models.Sort{}, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d articles, want 2", len(got))
	}
	if _, err := engine.Search(context.Background(), testIndex, query.MatchAll(), models.Sort{}, 0, 0); err == nil {
		t.Error("expected error for zero limit without a configured default")
	}
}

func TestProcessPage(t *testing.T) {
	cfg := &config.SearchConfig{DefaultLimit: 10, MaxLimit: 50}
	tests := []struct {
		offset, limit       int
		wantOffset, wantLim int
		wantErr             bool
	}{
		{0, 0, 0, 10, false},
		{5, -3, 5, 10, false},
		{0, 25, 0, 25, false},
		{0, 80, 0, 50, false},
		{-1, 5, 0, 0, true},
	}
	for _, tt := range tests {
		off, lim, err := ProcessPage(cfg, tt.offset, tt.limit)
		if (err != nil) != tt.wantErr {
			t.Errorf("ProcessPage(%d, %d) err = %v", tt.offset, tt.limit, err)
			continue
		}
		if !tt.wantErr && (off != tt.wantOffset || lim != tt.wantLim) {
			t.Errorf("ProcessPage(%d, %d) = %d, %d; want %d, %d", tt.offset, tt.limit, off, lim, tt.wantOffset, tt.wantLim)
		}
	}
}
