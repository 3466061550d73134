// Package models defines core data structures for articles, sorting, and aggregation results.
package models

import "time"

// Article is the indexed unit. Empty strings and a zero PublishDate mean the
// field is absent: absent fields never match field-specific filters.
type Article struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Author      string    `json:"author,omitempty"`
	Content     string    `json:"content,omitempty"`
	PublishDate time.Time `json:"publish_date,omitempty"`
	TotalViews  int64     `json:"total_views"`
}

// Clone returns a copy of a.
func (a *Article) Clone() *Article {
	c := *a
	return &c
}

// Has reports whether field f carries a value on a.
func (a *Article) Has(f Field) bool {
	switch f {
	case FieldTitle:
		return a.Title != ""
	case FieldAuthor:
		return a.Author != ""
	case FieldContent:
		return a.Content != ""
	case FieldPublishDate:
		return !a.PublishDate.IsZero()
	case FieldTotalViews:
		return true
	}
	return false
}

// PresentFields lists the fields that carry a value on a, in declaration order.
func (a *Article) PresentFields() []string {
	out := make([]string, 0, len(AllFields))
	for _, f := range AllFields {
		if a.Has(f) {
			out = append(out, string(f))
		}
	}
	return out
}
