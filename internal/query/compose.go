package query

import (
	"time"

	"github.com/hyperjump/articles/internal/models"
)

// Filters is a sparse set of article filters. Zero-valued fields are absent and
// do not restrict results; present fields combine with AND.
type Filters struct {
	// Title is a tokenized match against the title.
	Title string
	// TitleExact is an untokenized, case-sensitive equality on the title.
	TitleExact string
	// TitlePrefix matches titles beginning with the literal prefix.
	TitlePrefix string
	// TitlePhrase matches titles containing the phrase.
	TitlePhrase string
	// AuthorExact is an untokenized equality on the author.
	AuthorExact string
	// Content is a tokenized match against the content.
	Content string
	// ContentPhrase matches content containing the phrase.
	ContentPhrase string
	// PublishDate restricts to articles published at exactly this instant (UTC).
	PublishDate *time.Time
	// PublishedFrom and PublishedTo bound the publish date inclusively.
	PublishedFrom *time.Time
	PublishedTo   *time.Time
	// MinViews and MaxViews bound total views inclusively.
	MinViews *int64
	MaxViews *int64
	// RequireContent keeps only articles that carry content.
	RequireContent bool
}

// Compose builds the conjunction of every present filter in f. An empty
// Filters yields MatchAll.
func Compose(f Filters) Expression {
	var parts []Expression
	if f.RequireContent {
		parts = append(parts, Exists(models.FieldContent))
	}
	if f.Title != "" {
		parts = append(parts, Match(models.FieldTitle, f.Title))
	}
	if f.TitleExact != "" {
		parts = append(parts, Term(models.FieldTitle, f.TitleExact))
	}
	if f.TitlePrefix != "" {
		parts = append(parts, Prefix(models.FieldTitle, f.TitlePrefix))
	}
	if f.TitlePhrase != "" {
		parts = append(parts, Phrase(models.FieldTitle, f.TitlePhrase))
	}
	if f.AuthorExact != "" {
		parts = append(parts, Term(models.FieldAuthor, f.AuthorExact))
	}
	if f.Content != "" {
		parts = append(parts, Match(models.FieldContent, f.Content))
	}
	if f.ContentPhrase != "" {
		parts = append(parts, Phrase(models.FieldContent, f.ContentPhrase))
	}
	if f.PublishDate != nil {
		parts = append(parts, ExactDate(models.FieldPublishDate, *f.PublishDate))
	}
	if f.PublishedFrom != nil || f.PublishedTo != nil {
		parts = append(parts, DateRange(models.FieldPublishDate, f.PublishedFrom, f.PublishedTo))
	}
	if f.MinViews != nil || f.MaxViews != nil {
		parts = append(parts, NumericRange(models.FieldTotalViews, toFloat(f.MinViews), toFloat(f.MaxViews)))
	}
	return And(parts...)
}

// MultiFieldMatch finds term as a phrase in the title, content or author, but
// only among articles that carry content.
func MultiFieldMatch(term string) Expression {
	hasContent := Exists(models.FieldContent)
	if term == "" {
		return hasContent
	}
	return And(
		hasContent,
		Or(
			Phrase(models.FieldTitle, term),
			Phrase(models.FieldContent, term),
			Phrase(models.FieldAuthor, term),
		),
	)
}

func toFloat(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
