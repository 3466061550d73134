// Package docstore is an in-process document store: a bleve index per index
// name for search, SQLite rows as the source of each article, and a registry
// of server-side scan cursors.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/articles/internal/keyword"
	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/storage"
	"github.com/hyperjump/articles/internal/store"
	"go.uber.org/zap"
)

// aggregationBatch is how many matching ids are summed per statement.
const aggregationBatch = 500

// Store implements store.Client. It is safe for concurrent use.
type Store struct {
	rows      storage.Storage
	indexPath string // empty keeps indices in memory
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	indices map[string]*keyword.BleveIndex
	scrolls map[string]*scroll
}

var _ store.Client = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the clock used for cursor expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store over rows. Indices live under indexPath, one directory
// per index name; an empty indexPath keeps them in memory.
func New(rows storage.Storage, indexPath string, opts ...Option) *Store {
	s := &Store{
		rows:      rows,
		indexPath: indexPath,
		logger:    zap.NewNop(),
		now:       time.Now,
		indices:   make(map[string]*keyword.BleveIndex),
		scrolls:   make(map[string]*scroll),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// validateIndexName rejects names that could resolve outside the index directory.
func validateIndexName(name string) error {
	if name == "" {
		return fmt.Errorf("index name is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || name == "." {
		return fmt.Errorf("invalid index name %q", name)
	}
	return nil
}

func (s *Store) pathFor(name string) string {
	if s.indexPath == "" {
		return ""
	}
	return filepath.Join(s.indexPath, name)
}

// lookup returns the open index for name, opening it from disk when present.
func (s *Store) lookup(name string) (*keyword.BleveIndex, error) {
	if err := validateIndexName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrNoSuchIndex, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indices[name]; ok {
		return idx, nil
	}
	path := s.pathFor(name)
	if !keyword.Exists(path) {
		return nil, fmt.Errorf("%w: %s", store.ErrNoSuchIndex, name)
	}
	idx, err := keyword.OpenBleveIndex(path)
	if err != nil {
		return nil, err
	}
	s.indices[name] = idx
	return idx, nil
}

// IndexExists implements store.Client.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	_, err := s.lookup(name)
	if errors.Is(err, store.ErrNoSuchIndex) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateIndex implements store.Client.
func (s *Store) CreateIndex(ctx context.Context, name string) error {
	if err := validateIndexName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.pathFor(name)
	if _, ok := s.indices[name]; ok || keyword.Exists(path) {
		return fmt.Errorf("%w: %s", store.ErrIndexExists, name)
	}
	if s.indexPath != "" {
		if err := os.MkdirAll(s.indexPath, 0755); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	idx, err := keyword.NewBleveIndex(path)
	if err != nil {
		return err
	}
	s.indices[name] = idx
	s.logger.Debug("index created", zap.String("index", name), zap.String("path", path))
	return nil
}

// BulkUpsert implements store.Client. Articles without an id are assigned a
// UUID; the caller's articles are not modified.
func (s *Store) BulkUpsert(ctx context.Context, name string, articles []*models.Article) (*store.BulkResponse, error) {
	idx, err := s.lookup(name)
	if errors.Is(err, store.ErrNoSuchIndex) {
		return &store.BulkResponse{Diagnostic: err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return &store.BulkResponse{Diagnostic: "bulk request must contain at least one document"}, nil
	}

	batch := make([]*models.Article, len(articles))
	for i, a := range articles {
		if a == nil {
			return &store.BulkResponse{Diagnostic: fmt.Sprintf("document %d is null", i)}, nil
		}
		c := a.Clone()
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if !c.PublishDate.IsZero() {
			c.PublishDate = c.PublishDate.UTC()
		}
		batch[i] = c
	}

	indexed := false
	existing, err := s.rows.UpsertArticles(ctx, name, batch, func() error {
		if err := idx.Upsert(ctx, batch); err != nil {
			return err
		}
		indexed = true
		return nil
	})
	if err != nil {
		if indexed {
			// the rows rolled back after the index took the batch
			s.restore(ctx, name, idx, batch)
		}
		return &store.BulkResponse{Diagnostic: err.Error()}, nil
	}

	resp := &store.BulkResponse{Valid: true, Items: make([]store.BulkItem, len(batch))}
	seen := make(map[string]bool, len(batch))
	for i, a := range batch {
		result := store.BulkCreated
		if existing[a.ID] || seen[a.ID] {
			result = store.BulkUpdated
		}
		seen[a.ID] = true
		resp.Items[i] = store.BulkItem{ID: a.ID, Result: result}
	}
	return resp, nil
}

// restore puts the index entries for batch back in line with the committed
// rows: ids with a row are reindexed from it, the rest are removed.
func (s *Store) restore(ctx context.Context, name string, idx *keyword.BleveIndex, batch []*models.Article) {
	ctx = context.WithoutCancel(ctx)
	ids := make([]string, len(batch))
	for i, a := range batch {
		ids[i] = a.ID
	}
	rows, err := s.rows.GetArticles(ctx, name, ids)
	if err != nil {
		s.logger.Warn("failed to read rows for index restore", zap.String("index", name), zap.Error(err))
		return
	}
	var keep []*models.Article
	var drop []string
	for _, id := range ids {
		if a, ok := rows[id]; ok {
			keep = append(keep, a)
		} else {
			drop = append(drop, id)
		}
	}
	if err := idx.Delete(ctx, drop); err != nil {
		s.logger.Warn("failed to remove uncommitted articles from index", zap.String("index", name), zap.Error(err))
	}
	if len(keep) > 0 {
		if err := idx.Upsert(ctx, keep); err != nil {
			s.logger.Warn("failed to reindex committed articles", zap.String("index", name), zap.Error(err))
		}
	}
}

// Get implements store.Client.
func (s *Store) Get(ctx context.Context, name, id string) (*models.Article, error) {
	if _, err := s.lookup(name); err != nil {
		return nil, err
	}
	a, err := s.rows.GetArticle(ctx, name, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", store.ErrNotFound, name, id)
	}
	return a, err
}

// hydrate loads the rows for hits, preserving hit order. Hits whose row has
// vanished are skipped.
func (s *Store) hydrate(ctx context.Context, name string, hits []keyword.Hit) ([]*models.Article, error) {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	rows, err := s.rows.GetArticles(ctx, name, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Article, 0, len(hits))
	for _, id := range ids {
		if a, ok := rows[id]; ok {
			out = append(out, a)
		} else {
			s.logger.Warn("indexed article has no row", zap.String("index", name), zap.String("id", id))
		}
	}
	return out, nil
}

// Aggregate implements store.Client. Sums of no values are 0; averages of no
// values are nil.
func (s *Store) Aggregate(ctx context.Context, req store.AggregationRequest) (*store.AggregationResponse, error) {
	idx, err := s.lookup(req.Index)
	if errors.Is(err, store.ErrNoSuchIndex) {
		return &store.AggregationResponse{Diagnostic: err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}
	for _, spec := range req.Aggregations {
		if spec.Field.Kind() != models.KindNumeric {
			return &store.AggregationResponse{
				Diagnostic: fmt.Sprintf("aggregation %s: field %s is not numeric", spec.Name, spec.Field),
			}, nil
		}
		if spec.Type != store.AggSum && spec.Type != store.AggAvg {
			return &store.AggregationResponse{
				Diagnostic: fmt.Sprintf("aggregation %s: unknown type %q", spec.Name, spec.Type),
			}, nil
		}
	}

	type total struct {
		sum   float64
		count int64
	}
	totals := make(map[models.Field]*total)
	for _, spec := range req.Aggregations {
		totals[spec.Field] = &total{}
	}
	err = idx.ForEachID(ctx, req.Expression, aggregationBatch, func(ids []string) error {
		for field, t := range totals {
			sum, count, err := s.rows.SumField(ctx, req.Index, field, ids)
			if err != nil {
				return err
			}
			t.sum += sum
			t.count += count
		}
		return nil
	})
	if err != nil {
		return &store.AggregationResponse{Diagnostic: err.Error()}, nil
	}

	resp := &store.AggregationResponse{Valid: true, Values: make(map[string]*float64, len(req.Aggregations))}
	for _, spec := range req.Aggregations {
		t := totals[spec.Field]
		switch spec.Type {
		case store.AggSum:
			v := t.sum
			resp.Values[spec.Name] = &v
		case store.AggAvg:
			if t.count == 0 {
				resp.Values[spec.Name] = nil
				continue
			}
			v := t.sum / float64(t.count)
			resp.Values[spec.Name] = &v
		}
	}
	return resp, nil
}

// Close releases every open scan and closes the indices.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, idx := range s.indices {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close index %s: %w", name, err))
		}
	}
	s.indices = make(map[string]*keyword.BleveIndex)
	s.scrolls = make(map[string]*scroll)
	return errors.Join(errs...)
}
