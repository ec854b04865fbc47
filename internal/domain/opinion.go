// Package domain defines the persistence models for opinions and the
// idempotency records that guard their creation. These types are mapped with
// GORM and form the core data layer of the opinions backend.
package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Opinion is a titled piece of text, optionally attributed to a source and
// to the person who submitted it.
//
// Fields:
//   - ID: auto-increment integer primary key, assigned on insert.
//   - Title: short headline, required.
//   - Text: body of the opinion, required and unique (ux_opinions_text).
//   - Source: optional link or reference; serialized as null when unset.
//   - AddedBy: optional submitter name; serialized as null when unset.
//   - CreatedAt / UpdatedAt: managed by GORM, never serialized.
type Opinion struct {
	ID        uint      `json:"id"       gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title"    gorm:"type:varchar(128);not null"`
	Text      string    `json:"text"     gorm:"type:text;not null;uniqueIndex:ux_opinions_text"`
	Source    *string   `json:"source"   gorm:"type:varchar(256)"`
	AddedBy   *string   `json:"added_by" gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"        gorm:"index"`
}

// TableName returns the database table name for Opinion.
func (Opinion) TableName() string { return "opinions" }

// Optional is a JSON field that remembers whether it was present in the
// decoded document. A key that is missing leaves Set false; a key holding
// null sets both Set and Null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Set: true} }

// Null returns an Optional explicitly set to null.
func Null[T any]() Optional[T] { return Optional[T]{Set: true, Null: true} }

// UnmarshalJSON implements json.Unmarshaler. It is only invoked for keys
// present in the input, which is what makes Set meaningful.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		o.Value, o.Null = zero, true
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

// Ptr returns nil for a null value and a pointer to Value otherwise.
func (o Optional[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// OpinionPatch describes a partial update. Fields that are not Set keep the
// current value of the stored opinion.
type OpinionPatch struct {
	Title   Optional[string] `json:"title"`
	Text    Optional[string] `json:"text"`
	Source  Optional[string] `json:"source"`
	AddedBy Optional[string] `json:"added_by"`
}

// Empty reports whether the patch carries no recognized fields.
func (p OpinionPatch) Empty() bool {
	return !p.Title.Set && !p.Text.Set && !p.Source.Set && !p.AddedBy.Set
}

// Apply overlays every Set field of p onto o.
func (p OpinionPatch) Apply(o *Opinion) {
	if p.Title.Set {
		o.Title = p.Title.Value
	}
	if p.Text.Set {
		o.Text = p.Text.Value
	}
	if p.Source.Set {
		o.Source = p.Source.Ptr()
	}
	if p.AddedBy.Set {
		o.AddedBy = p.AddedBy.Ptr()
	}
}
