package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/adrlens/internal/index"
	"github.com/starford/adrlens/internal/models"
	"github.com/starford/adrlens/internal/recordservice"
	"github.com/starford/adrlens/internal/reference"
	"github.com/starford/adrlens/internal/validate"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 10 << 20

// CreateRecordRequest is the request body for creating a record.
type CreateRecordRequest struct {
	Title string `json:"title" example:"Use SQLite for the index"`
	Dir   string `json:"dir,omitempty" example:"docs"`
	Date  string `json:"date,omitempty" example:"20240131"`
}

// Validate checks the request shape. Title content rules are applied by
// the service.
func (r CreateRecordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Dir, validation.Length(0, validate.MaxPathLength)),
		validation.Field(&r.Date, validation.Match(validate.DateStamp)),
	)
}

// ScanRequest is the request body for scanning a text buffer. Key and
// Version identify the buffer for the scan cache.
type ScanRequest struct {
	Key     string `json:"key" example:"untitled-1"`
	Version int64  `json:"version" example:"3"`
	Text    string `json:"text" example:"see adr_cache_20240101.md"`
}

// Validate checks the request shape.
func (r ScanRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required, validation.Length(1, validate.MaxPathLength)),
		validation.Field(&r.Version, validation.Min(int64(0))),
	)
}

// ValidateRequest is the request body for POST /validate.
type ValidateRequest struct {
	Kind  string `json:"kind" example:"title"`
	Value string `json:"value" example:"My decision"`
}

// Validate checks the request shape.
func (r ValidateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.In(
			string(validate.KindTitle),
			string(validate.KindPrefix),
			string(validate.KindDirectory),
			string(validate.KindPath),
		)),
	)
}

// RecordDetail is the full record response type.
type RecordDetail = recordservice.RecordDetail

// RecordListResponse wraps record listings.
type RecordListResponse struct {
	Records []models.RecordSummary `json:"records"`
	Total   int                    `json:"total" example:"42"`
}

// ScanResponse lists the resolved references of one document.
type ScanResponse struct {
	Key        string                 `json:"key"`
	Prefix     string                 `json:"prefix" example:"adr_"`
	References []reference.Resolution `json:"references"`
}

// ResolveResponse is the target of a resolved reference.
type ResolveResponse struct {
	Reference string `json:"reference" example:"adr_cache"`
	Path      string `json:"path" example:"docs/adr/adr_cache_20240101.md"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}
