package search

import (
	"context"
	"fmt"

	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
	"github.com/hyperjump/articles/internal/store"
	"go.uber.org/zap"
)

// Aggregate sums and averages metric over the articles matching expr. Any
// field-existence precondition belongs in expr. Missing or empty aggregation
// values read as 0.
func (e *Engine) Aggregate(ctx context.Context, index string, expr query.Expression, metric models.Field) (*models.ArticleAggregation, error) {
	resp, err := e.client.Aggregate(ctx, store.AggregationRequest{
		Index:      index,
		Expression: expr,
		Aggregations: []store.AggregationSpec{
			{Name: models.AggTotalViews, Type: store.AggSum, Field: metric},
			{Name: models.AggAverageViews, Type: store.AggAvg, Field: metric},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrQueryExecution, err)
	}
	if resp == nil || !resp.Valid {
		diagnostic := "no response"
		if resp != nil {
			diagnostic = resp.Diagnostic
		}
		return nil, fmt.Errorf("%w: %s", store.ErrQueryExecution, diagnostic)
	}
	out := &models.ArticleAggregation{
		TotalViews:   ValueOrZero(resp.Values, models.AggTotalViews),
		AverageViews: ValueOrZero(resp.Values, models.AggAverageViews),
	}
	e.logger.Debug("aggregation",
		zap.String("index", index),
		zap.Stringer("expression", expr),
		zap.Float64("total", out.TotalViews),
		zap.Float64("average", out.AverageViews),
	)
	return out, nil
}

// ValueOrZero returns the named aggregation value, or 0 when it is absent or nil.
func ValueOrZero(values map[string]*float64, name string) float64 {
	if v, ok := values[name]; ok && v != nil {
		return *v
	}
	return 0
}
