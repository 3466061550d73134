package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
)

// docIDSort is appended to every sort so that ordering is total and
// search-after paging never skips or repeats hits with equal sort keys.
const docIDSort = "_id"

// BleveIndex is one article index backed by bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates an index at path with the article mapping. An empty
// path creates a memory-only index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im, err := NewMapping()
	if err != nil {
		return nil, err
	}
	var index bleve.Index
	if path == "" {
		index, err = bleve.NewMemOnly(im)
	} else {
		index, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// OpenBleveIndex opens an existing index at path.
func OpenBleveIndex(path string) (*BleveIndex, error) {
	index, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Exists reports whether an index directory is present at path.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Upsert indexes every article in one batch, replacing any previous version.
// Articles must carry an ID.
func (b *BleveIndex) Upsert(ctx context.Context, articles []*models.Article) error {
	batch := b.index.NewBatch()
	for _, a := range articles {
		if a.ID == "" {
			return fmt.Errorf("article without id")
		}
		if err := batch.Index(a.ID, projection(a)); err != nil {
			return fmt.Errorf("failed to index article %s: %w", a.ID, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Delete removes the documents with the given ids in one batch. Unknown ids are ignored.
func (b *BleveIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve delete batch failed: %w", err)
	}
	return nil
}

// SearchRequest is one sorted page of hits.
type SearchRequest struct {
	Query query.Expression
	Sort  models.Sort
	From  int
	Size  int
	// After holds the sort key of the last hit of the previous page. It
	// cannot be combined with From.
	After []string
}

// Hit is one matching article id with its sort key.
type Hit struct {
	ID   string
	Sort []string
}

// SearchResult is a page of hits and the total number of matches.
type SearchResult struct {
	Hits  []Hit
	Total uint64
}

// Search runs req and returns the ids of matching articles in sort order.
func (b *BleveIndex) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	return b.run(ctx, req, sortOrder(req.Sort))
}

// ForEachID calls fn with successive batches of the ids matching expr, in id
// order, until every match has been visited or fn returns an error.
func (b *BleveIndex) ForEachID(ctx context.Context, expr query.Expression, batchSize int, fn func(ids []string) error) error {
	req := SearchRequest{Query: expr, Size: batchSize}
	for {
		res, err := b.run(ctx, req, []string{docIDSort})
		if err != nil {
			return err
		}
		if len(res.Hits) == 0 {
			return nil
		}
		ids := make([]string, len(res.Hits))
		for i, h := range res.Hits {
			ids[i] = h.ID
		}
		if err := fn(ids); err != nil {
			return err
		}
		req.After = res.Hits[len(res.Hits)-1].Sort
	}
}

func (b *BleveIndex) run(ctx context.Context, req SearchRequest, sortBy []string) (*SearchResult, error) {
	q, err := Translate(req.Query)
	if err != nil {
		return nil, err
	}
	if req.Size <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", req.Size)
	}
	if len(req.After) > 0 && req.From > 0 {
		return nil, fmt.Errorf("search after cannot be combined with an offset")
	}
	search := bleve.NewSearchRequestOptions(q, req.Size, req.From, false)
	search.SortBy(sortBy)
	if len(req.After) > 0 {
		search.SearchAfter = req.After
	}
	results, err := b.index.SearchInContext(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := &SearchResult{Hits: make([]Hit, len(results.Hits)), Total: results.Total}
	for i, hit := range results.Hits {
		out.Hits[i] = Hit{ID: hit.ID, Sort: hit.Sort}
	}
	return out, nil
}

func sortOrder(s models.Sort) []string {
	if s.IsZero() {
		s = models.DefaultSort
	}
	field := string(s.Field)
	if s.Field.Kind() == models.KindText {
		field = exactField(s.Field)
	}
	if s.Descending {
		field = "-" + field
	}
	return []string{field, docIDSort}
}

// DocCount returns the total number of articles in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
