package query

import (
	"testing"
	"time"
)

func TestCompose(t *testing.T) {
	at := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	min := int64(100)
	tests := []struct {
		name    string
		filters Filters
		want    string
	}{
		{"empty", Filters{}, "match_all"},
		{"title only", Filters{Title: "go"}, `match(title:"go")`},
		{"title and content", Filters{Title: "go", Content: "lang"},
			`and(match(title:"go"), match(content:"lang"))`},
		{"exact date", Filters{PublishDate: &at},
			"range(publish_date:[2020-03-01T12:00:00Z,2020-03-01T12:00:00Z])"},
		{"all condition fields", Filters{Title: "a", Content: "b", PublishDate: &at},
			`and(match(title:"a"), match(content:"b"), range(publish_date:[2020-03-01T12:00:00Z,2020-03-01T12:00:00Z]))`},
		{"require content and views", Filters{RequireContent: true, MinViews: &min},
			"and(exists(content), range(total_views:[100,*]))"},
		{"exact, prefix, phrase", Filters{TitleExact: "Go", TitlePrefix: "G", ContentPhrase: "quick brown"},
			`and(term(title:"Go"), prefix(title:"G"), phrase(content:"quick brown"))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.filters)
			if got.String() != tt.want {
				t.Errorf("Compose() = %s, want %s", got, tt.want)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("Validate(): %v", err)
			}
		})
	}
}

func TestMultiFieldMatch(t *testing.T) {
	got := MultiFieldMatch("quick brown").String()
	want := `and(exists(content), or(phrase(title:"quick brown"), phrase(content:"quick brown"), phrase(author:"quick brown")))`
	if got != want {
		t.Errorf("MultiFieldMatch() = %s\nwant %s", got, want)
	}
	if got := MultiFieldMatch("").String(); got != "exists(content)" {
		t.Errorf("MultiFieldMatch(\"\") = %s", got)
	}
}
