package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/adrlens/internal/recordservice"
	"github.com/starford/adrlens/internal/validate"
)

// Handler holds API route handlers.
type Handler struct {
	svc   *recordservice.Service
	paths *validate.PathValidator
}

// NewHandler creates a new Handler. paths is used by POST /validate for
// the path kind; nil means permissive mode.
func NewHandler(svc *recordservice.Service, paths *validate.PathValidator) *Handler {
	return &Handler{svc: svc, paths: paths}
}

// wildcardPath extracts the vault path from the URL wildcard. Encoded
// slashes (docs%2Fadr%2Fx.md) are accepted.
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// decode reads a JSON body into v and runs its Validate method.
func decode[T interface{ Validate() error }](w http.ResponseWriter, r *http.Request, v *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := (*v).Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// ListRecords handles GET /api/records.
//
//	@Summary		List indexed records
//	@Tags			records
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status (case-insensitive)"
//	@Success		200		{object}	RecordListResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Records(r.Context())
	if err != nil {
		writeError(w, err, "list records")
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := recs[:0]
		for _, rec := range recs {
			if strings.EqualFold(rec.Status, status) {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: recs, Total: len(recs)})
}

// GetRecord handles GET /api/records/*.
//
//	@Summary		Get a record with its backlinks
//	@Tags			records
//	@Produce		json
//	@Param			path	path		string	true	"Record path"
//	@Success		200		{object}	RecordDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{path} [get]
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	rec, err := h.svc.Get(r.Context(), p)
	if err != nil {
		writeError(w, err, "get record", slog.String("path", p))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateRecord handles POST /api/records.
//
//	@Summary		Create a record from the configured template
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRecordRequest	true	"Record to create"
//	@Success		201		{object}	RecordDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [post]
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.svc.Create(r.Context(), recordservice.CreateRequest{
		Title: req.Title,
		Dir:   req.Dir,
		Date:  req.Date,
	})
	if err != nil {
		writeError(w, err, "create record", slog.String("dir", req.Dir))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Scan handles POST /api/scan.
//
//	@Summary		Scan a text buffer for record references
//	@Tags			references
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ScanRequest	true	"Buffer to scan"
//	@Success		200		{object}	ScanResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scan [post]
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !decode(w, r, &req) {
		return
	}
	refs := h.svc.ScanText(r.Context(), req.Key, req.Version, req.Text)
	writeJSON(w, http.StatusOK, ScanResponse{
		Key:        req.Key,
		Prefix:     h.svc.Engine().Matcher().Prefix(),
		References: refs,
	})
}

// References handles GET /api/references/*.
//
//	@Summary		Scan a vault file for record references
//	@Tags			references
//	@Produce		json
//	@Param			path	path		string	true	"File path"
//	@Success		200		{object}	ScanResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/references/{path} [get]
func (h *Handler) References(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.ScanFile(r.Context(), p)
	if err != nil {
		writeError(w, err, "scan file", slog.String("path", p))
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{
		Key:        res.Path,
		Prefix:     h.svc.Engine().Matcher().Prefix(),
		References: res.Resolutions,
	})
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve reference text to a record path
//	@Tags			references
//	@Produce		json
//	@Param			ref	query		string	true	"Reference text"
//	@Success		200	{object}	ResolveResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if strings.TrimSpace(ref) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'ref' is required"))
		return
	}
	p, err := h.svc.ResolveText(r.Context(), ref)
	if err != nil {
		writeError(w, err, "resolve")
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Reference: strings.TrimSpace(ref), Path: p})
}

// Validate handles POST /api/validate.
//
//	@Summary		Validate a title, prefix, directory name or path
//	@Tags			validation
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ValidateRequest	true	"Value to check"
//	@Success		200		{object}	validate.Outcome
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/validate [post]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, validate.Check(validate.Kind(req.Kind), req.Value, h.paths))
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across records
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
