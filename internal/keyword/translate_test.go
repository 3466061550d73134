package keyword

import (
	"testing"

	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
)

func TestTranslate_QueryShapes(t *testing.T) {
	tests := []struct {
		name  string
		expr  query.Expression
		check func(t *testing.T, q blevequery.Query)
	}{
		{"match all", query.MatchAll(), func(t *testing.T, q blevequery.Query) {
			if _, ok := q.(*blevequery.MatchAllQuery); !ok {
				t.Errorf("got %T", q)
			}
		}},
		{"term on text uses exact field", query.Term(models.FieldTitle, "Go"), func(t *testing.T, q blevequery.Query) {
			tq, ok := q.(*blevequery.TermQuery)
			if !ok {
				t.Fatalf("got %T", q)
			}
			if tq.Field() != "title_exact" || tq.Term != "Go" {
				t.Errorf("got field %s term %s", tq.Field(), tq.Term)
			}
		}},
		{"prefix uses exact field", query.Prefix(models.FieldAuthor, "An"), func(t *testing.T, q blevequery.Query) {
			pq, ok := q.(*blevequery.PrefixQuery)
			if !ok {
				t.Fatalf("got %T", q)
			}
			if pq.Field() != "author_exact" {
				t.Errorf("got field %s", pq.Field())
			}
		}},
		{"exists reads present fields", query.Exists(models.FieldContent), func(t *testing.T, q blevequery.Query) {
			tq, ok := q.(*blevequery.TermQuery)
			if !ok {
				t.Fatalf("got %T", q)
			}
			if tq.Field() != presentFieldsField || tq.Term != "content" {
				t.Errorf("got field %s term %s", tq.Field(), tq.Term)
			}
		}},
		{"term on numeric is a closed range", query.Term(models.FieldTotalViews, "42"), func(t *testing.T, q blevequery.Query) {
			nq, ok := q.(*blevequery.NumericRangeQuery)
			if !ok {
				t.Fatalf("got %T", q)
			}
			if nq.Min == nil || nq.Max == nil || *nq.Min != 42 || *nq.Max != 42 {
				t.Errorf("got range %v..%v", nq.Min, nq.Max)
			}
		}},
		{"or becomes disjunction", query.Or(query.Match(models.FieldTitle, "a"), query.Match(models.FieldContent, "b")), func(t *testing.T, q blevequery.Query) {
			dq, ok := q.(*blevequery.DisjunctionQuery)
			if !ok {
				t.Fatalf("got %T", q)
			}
			if len(dq.Disjuncts) != 2 {
				t.Errorf("got %d disjuncts", len(dq.Disjuncts))
			}
		}},
		{"not wraps in boolean", query.Not(query.Exists(models.FieldContent)), func(t *testing.T, q blevequery.Query) {
			if _, ok := q.(*blevequery.BooleanQuery); !ok {
				t.Errorf("got %T", q)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Translate(tt.expr)
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, q)
		})
	}
}

func TestTranslate_RejectsBadDateTerm(t *testing.T) {
	if _, err := Translate(query.Term(models.FieldPublishDate, "yesterday")); err == nil {
		t.Error("expected error for unparseable date term")
	}
}
