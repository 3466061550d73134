// Package keyword provides the bleve full-text index behind article queries.
package keyword

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/hyperjump/articles/internal/models"
)

const (
	// exactSuffix names the untokenized companion of each text field.
	exactSuffix = "_exact"
	// presentFieldsField lists the fields carrying a value, for existence filters.
	presentFieldsField = "present_fields"
	// textAnalyzer splits on unicode word boundaries and lowercases. Stop
	// words are kept so text made only of them stays searchable.
	textAnalyzer = "article_text"
)

func exactField(f models.Field) string {
	return string(f) + exactSuffix
}

// NewMapping returns the article index mapping. Text fields are indexed twice:
// tokenized with textAnalyzer (lowercase, stop words kept, no stemming) and as a
// single keyword term for exact and prefix filters.
func NewMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(textAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register text analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false
	for _, f := range models.AllFields {
		switch f.Kind() {
		case models.KindText:
			text := bleve.NewTextFieldMapping()
			text.Analyzer = textAnalyzer
			text.Store = false
			exact := bleve.NewKeywordFieldMapping()
			exact.Name = exactField(f)
			exact.Store = false
			exact.IncludeInAll = false
			docMapping.AddFieldMappingsAt(string(f), text, exact)
		case models.KindDate:
			date := bleve.NewDateTimeFieldMapping()
			date.Store = false
			docMapping.AddFieldMappingsAt(string(f), date)
		case models.KindNumeric:
			num := bleve.NewNumericFieldMapping()
			num.Store = false
			docMapping.AddFieldMappingsAt(string(f), num)
		}
	}
	present := bleve.NewKeywordFieldMapping()
	present.Store = false
	present.IncludeInAll = false
	docMapping.AddFieldMappingsAt(presentFieldsField, present)

	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = textAnalyzer
	im.StoreDynamic = false
	im.IndexDynamic = false
	return im, nil
}

// projection is the indexed form of an article. Absent fields are left out.
func projection(a *models.Article) map[string]interface{} {
	doc := map[string]interface{}{
		string(models.FieldTotalViews): float64(a.TotalViews),
		presentFieldsField:             a.PresentFields(),
	}
	if a.Title != "" {
		doc[string(models.FieldTitle)] = a.Title
	}
	if a.Author != "" {
		doc[string(models.FieldAuthor)] = a.Author
	}
	if a.Content != "" {
		doc[string(models.FieldContent)] = a.Content
	}
	if !a.PublishDate.IsZero() {
		doc[string(models.FieldPublishDate)] = a.PublishDate.UTC()
	}
	return doc
}
