// Package store defines the document store contract the article core drives.
package store

import (
	"context"
	"time"

	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
)

// Client is a remote full-text document store. Responses carry a Valid flag
// and a Diagnostic for store-level rejections; a non-nil error means the
// request itself failed.
type Client interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, name string) error
	// BulkUpsert inserts each article or fully replaces the stored one with the same id.
	BulkUpsert(ctx context.Context, name string, articles []*models.Article) (*BulkResponse, error)
	// Query runs one search. A positive CursorTimeout opens a scan and the
	// returned page carries its cursor token.
	Query(ctx context.Context, req QueryRequest) (*Page, error)
	// ContinueScan fetches the page after the one token was issued with and
	// renews the cursor for timeout.
	ContinueScan(ctx context.Context, timeout time.Duration, token string) (*Page, error)
	ReleaseScan(ctx context.Context, token string) error
	Aggregate(ctx context.Context, req AggregationRequest) (*AggregationResponse, error)
	Get(ctx context.Context, name, id string) (*models.Article, error)
}

// QueryRequest describes one search round trip.
type QueryRequest struct {
	Index         string
	Expression    query.Expression
	Sort          models.Sort
	Offset        int
	Limit         int
	CursorTimeout time.Duration
}

// Page is one batch of results.
type Page struct {
	Articles    []*models.Article
	CursorToken string
	Valid       bool
	Diagnostic  string
}

// BulkItemResult reports what happened to one article of a bulk upsert.
type BulkItemResult string

const (
	BulkCreated BulkItemResult = "created"
	BulkUpdated BulkItemResult = "updated"
)

// BulkItem is the per-article outcome of a bulk upsert, in request order.
type BulkItem struct {
	ID     string
	Result BulkItemResult
}

// BulkResponse is the outcome of a bulk upsert. The batch is accepted or rejected as a unit.
type BulkResponse struct {
	Valid      bool
	Diagnostic string
	Items      []BulkItem
}

// AggregationType is a metric aggregation the store can compute.
type AggregationType string

const (
	AggSum AggregationType = "sum"
	AggAvg AggregationType = "avg"
)

// AggregationSpec names one metric aggregation over a numeric field.
type AggregationSpec struct {
	Name  string
	Type  AggregationType
	Field models.Field
}

// AggregationRequest runs expression and computes every spec over the matches.
type AggregationRequest struct {
	Index        string
	Expression   query.Expression
	Aggregations []AggregationSpec
}

// AggregationResponse maps aggregation names to values. A nil value means the
// aggregation produced no value.
type AggregationResponse struct {
	Values     map[string]*float64
	Valid      bool
	Diagnostic string
}
