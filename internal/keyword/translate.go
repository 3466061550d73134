package keyword

import (
	"fmt"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
)

// Translate converts an expression into the equivalent bleve query.
func Translate(expr query.Expression) (blevequery.Query, error) {
	if err := expr.Validate(); err != nil {
		return nil, err
	}
	return translate(expr)
}

func translate(expr query.Expression) (blevequery.Query, error) {
	switch expr.Kind() {
	case query.KindMatchAll:
		return bleve.NewMatchAllQuery(), nil
	case query.KindTerm:
		return termQuery(expr.Field(), expr.Value())
	case query.KindMatch:
		q := bleve.NewMatchQuery(expr.Value())
		q.SetField(string(expr.Field()))
		q.SetOperator(blevequery.MatchQueryOperatorOr)
		return q, nil
	case query.KindPhrase:
		q := bleve.NewMatchPhraseQuery(expr.Value())
		q.SetField(string(expr.Field()))
		return q, nil
	case query.KindPrefix:
		q := bleve.NewPrefixQuery(expr.Value())
		q.SetField(exactField(expr.Field()))
		return q, nil
	case query.KindExists:
		q := bleve.NewTermQuery(string(expr.Field()))
		q.SetField(presentFieldsField)
		return q, nil
	case query.KindRange:
		return rangeQuery(expr.Field(), expr.Range()), nil
	case query.KindAnd, query.KindOr:
		children, err := translateAll(expr.Children())
		if err != nil {
			return nil, err
		}
		if expr.Kind() == query.KindAnd {
			return bleve.NewConjunctionQuery(children...), nil
		}
		return bleve.NewDisjunctionQuery(children...), nil
	case query.KindNot:
		inner, err := translate(expr.Children()[0])
		if err != nil {
			return nil, err
		}
		q := bleve.NewBooleanQuery()
		q.AddMust(bleve.NewMatchAllQuery())
		q.AddMustNot(inner)
		return q, nil
	}
	return nil, fmt.Errorf("unsupported expression kind %s", expr.Kind())
}

func translateAll(exprs []query.Expression) ([]blevequery.Query, error) {
	out := make([]blevequery.Query, 0, len(exprs))
	for _, e := range exprs {
		q, err := translate(e)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// termQuery is exact equality. Dates take RFC 3339 values and numbers decimal ones.
func termQuery(field models.Field, value string) (blevequery.Query, error) {
	inclusive := true
	switch field.Kind() {
	case models.KindDate:
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return nil, fmt.Errorf("term on %s: %w", field, err)
		}
		t = t.UTC()
		q := bleve.NewDateRangeInclusiveQuery(t, t, &inclusive, &inclusive)
		q.SetField(string(field))
		return q, nil
	case models.KindNumeric:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("term on %s: %w", field, err)
		}
		q := bleve.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
		q.SetField(string(field))
		return q, nil
	}
	q := bleve.NewTermQuery(value)
	q.SetField(exactField(field))
	return q, nil
}

func rangeQuery(field models.Field, r query.Range) blevequery.Query {
	inclusive := true
	if field.Kind() == models.KindDate {
		var from, to time.Time
		if r.From() != nil {
			from = *r.From()
		}
		if r.To() != nil {
			to = *r.To()
		}
		q := bleve.NewDateRangeInclusiveQuery(from, to, &inclusive, &inclusive)
		q.SetField(string(field))
		return q
	}
	q := bleve.NewNumericRangeInclusiveQuery(r.Min(), r.Max(), &inclusive, &inclusive)
	q.SetField(string(field))
	return q
}
