package models

import "fmt"

// Field names an indexed article field. The set is closed.
type Field string

const (
	FieldTitle       Field = "title"
	FieldAuthor      Field = "author"
	FieldContent     Field = "content"
	FieldPublishDate Field = "publish_date"
	FieldTotalViews  Field = "total_views"
)

// AllFields lists every Field in declaration order.
var AllFields = []Field{FieldTitle, FieldAuthor, FieldContent, FieldPublishDate, FieldTotalViews}

// FieldKind classifies a Field by how it is indexed.
type FieldKind int

const (
	KindText FieldKind = iota
	KindDate
	KindNumeric
)

// Kind returns how f is indexed.
func (f Field) Kind() FieldKind {
	switch f {
	case FieldPublishDate:
		return KindDate
	case FieldTotalViews:
		return KindNumeric
	default:
		return KindText
	}
}

// Validate returns an error when f is not one of AllFields.
func (f Field) Validate() error {
	for _, known := range AllFields {
		if f == known {
			return nil
		}
	}
	return fmt.Errorf("unknown field %q", string(f))
}

// Sort orders results by a single field.
type Sort struct {
	Field      Field `json:"field"`
	Descending bool  `json:"descending"`
}

// DefaultSort is publish date, newest first.
var DefaultSort = Sort{Field: FieldPublishDate, Descending: true}

// IsZero reports whether s is unset.
func (s Sort) IsZero() bool { return s.Field == "" }
