// Package models defines the domain types for adrlens.
package models

import "time"

// FileMetadata is a lightweight representation of a vault file returned by
// list operations.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordSummary is a record row from the index.
type RecordSummary struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Status    string    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref is a reference stored in the index: Source mentions TargetText at the
// given 0-based line and column span.
type Ref struct {
	Source      string `json:"source"`
	TargetText  string `json:"target_text"`
	Line        int    `json:"line"`
	ColumnStart int    `json:"column_start"`
	ColumnEnd   int    `json:"column_end"`
}
