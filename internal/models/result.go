package models

// Aggregation names requested by the view statistics query.
const (
	AggTotalViews   = "TotalViews"
	AggAverageViews = "AverageViews"
)

// ArticleAggregation holds the view statistics over a set of matching articles.
// Zero means either a zero metric or no matching data; the two are not distinguished.
type ArticleAggregation struct {
	TotalViews   float64 `json:"total_views"`
	AverageViews float64 `json:"average_views"`
}
