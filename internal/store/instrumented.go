package store

import (
	"context"
	"time"

	"github.com/hyperjump/articles/internal/metrics"
	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
	"github.com/hyperjump/articles/pkg/utils"
	"go.uber.org/zap"
)

const (
	statusOK      = "ok"
	statusInvalid = "invalid"
	statusError   = "error"

	maxLoggedExpression = 512
)

// InstrumentedClient wraps a Client with request metrics and debug logging.
type InstrumentedClient struct {
	inner  Client
	logger *zap.Logger
}

// NewInstrumentedClient wraps inner. A nil logger disables logging.
func NewInstrumentedClient(inner Client, logger *zap.Logger) *InstrumentedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedClient{inner: inner, logger: logger}
}

func (c *InstrumentedClient) observe(op string, start time.Time, status string, err error, fields ...zap.Field) {
	d := time.Since(start)
	metrics.StoreRequestDuration.WithLabelValues(op).Observe(d.Seconds())
	metrics.StoreRequestsTotal.WithLabelValues(op, status).Inc()
	fields = append(fields, zap.String("op", op), zap.String("status", status), zap.Duration("duration", d))
	if err != nil {
		c.logger.Warn("store request failed", append(fields, zap.Error(err))...)
		return
	}
	c.logger.Debug("store request", fields...)
}

func expressionField(expr query.Expression) zap.Field {
	return zap.String("expression", utils.Truncate(expr.String(), maxLoggedExpression))
}

func statusOf(valid bool, err error) string {
	switch {
	case err != nil:
		return statusError
	case !valid:
		return statusInvalid
	}
	return statusOK
}

// IndexExists implements Client.
func (c *InstrumentedClient) IndexExists(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	ok, err := c.inner.IndexExists(ctx, name)
	c.observe("index_exists", start, statusOf(true, err), err, zap.String("index", name), zap.Bool("exists", ok))
	return ok, err
}

// CreateIndex implements Client.
func (c *InstrumentedClient) CreateIndex(ctx context.Context, name string) error {
	start := time.Now()
	err := c.inner.CreateIndex(ctx, name)
	c.observe("create_index", start, statusOf(true, err), err, zap.String("index", name))
	return err
}

// BulkUpsert implements Client.
func (c *InstrumentedClient) BulkUpsert(ctx context.Context, name string, articles []*models.Article) (*BulkResponse, error) {
	start := time.Now()
	resp, err := c.inner.BulkUpsert(ctx, name, articles)
	valid := resp != nil && resp.Valid
	if err == nil && valid {
		metrics.StoreDocumentsTotal.WithLabelValues("bulk_upsert").Add(float64(len(resp.Items)))
	}
	c.observe("bulk_upsert", start, statusOf(valid, err), err, zap.String("index", name), zap.Int("documents", len(articles)))
	return resp, err
}

// Query implements Client.
func (c *InstrumentedClient) Query(ctx context.Context, req QueryRequest) (*Page, error) {
	start := time.Now()
	page, err := c.inner.Query(ctx, req)
	c.observePage("query", start, page, err,
		zap.String("index", req.Index),
		expressionField(req.Expression),
		zap.Duration("cursor_timeout", req.CursorTimeout),
	)
	return page, err
}

// ContinueScan implements Client.
func (c *InstrumentedClient) ContinueScan(ctx context.Context, timeout time.Duration, token string) (*Page, error) {
	start := time.Now()
	page, err := c.inner.ContinueScan(ctx, timeout, token)
	c.observePage("continue_scan", start, page, err)
	return page, err
}

func (c *InstrumentedClient) observePage(op string, start time.Time, page *Page, err error, fields ...zap.Field) {
	valid := page != nil && page.Valid
	if err == nil && valid {
		metrics.StoreDocumentsTotal.WithLabelValues(op).Add(float64(len(page.Articles)))
		fields = append(fields, zap.Int("documents", len(page.Articles)))
	}
	c.observe(op, start, statusOf(valid, err), err, fields...)
}

// ReleaseScan implements Client.
func (c *InstrumentedClient) ReleaseScan(ctx context.Context, token string) error {
	start := time.Now()
	err := c.inner.ReleaseScan(ctx, token)
	c.observe("release_scan", start, statusOf(true, err), err)
	return err
}

// Aggregate implements Client.
func (c *InstrumentedClient) Aggregate(ctx context.Context, req AggregationRequest) (*AggregationResponse, error) {
	start := time.Now()
	resp, err := c.inner.Aggregate(ctx, req)
	c.observe("aggregate", start, statusOf(resp != nil && resp.Valid, err), err,
		zap.String("index", req.Index), expressionField(req.Expression))
	return resp, err
}

// Get implements Client.
func (c *InstrumentedClient) Get(ctx context.Context, name, id string) (*models.Article, error) {
	start := time.Now()
	a, err := c.inner.Get(ctx, name, id)
	c.observe("get", start, statusOf(true, err), err, zap.String("index", name), zap.String("id", id))
	return a, err
}
