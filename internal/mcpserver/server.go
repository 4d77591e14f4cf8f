// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes adrlens tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/adrlens/internal/apperr"
	"github.com/starford/adrlens/internal/recordservice"
	"github.com/starford/adrlens/internal/validate"
)

// ResourceURI is the URI of the record format resource.
const ResourceURI = "adrlens://record-format"

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server wraps the MCP server with adrlens tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *recordservice.Service
	paths *validate.PathValidator
}

// New creates a new MCP server with all adrlens tools registered. paths
// checks the path kind of validate_input; nil means permissive mode.
func New(svc *recordservice.Service, paths *validate.PathValidator) *Server {
	s := &Server{svc: svc, paths: paths}

	s.mcp = server.NewMCPServer(
		"adrlens",
		Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("scan_references",
		mcp.WithDescription("Find record references in a vault file or in a text buffer and resolve "+
			"each one to a record path. Pass either path or text."),
		mcp.WithString("path", mcp.Description("Vault-relative path of the file to scan")),
		mcp.WithString("text", mcp.Description("Text to scan when no path is given")),
	), s.scanReferences)

	s.mcp.AddTool(mcp.NewTool("resolve_reference",
		mcp.WithDescription("Resolve reference text (e.g. adr_cache_20240101.md) to the path of the first record containing it."),
		mcp.WithString("reference", mcp.Required(), mcp.Description("Reference text")),
	), s.resolveReference)

	s.mcp.AddTool(mcp.NewTool("create_record",
		mcp.WithDescription("Create a new decision record from the configured template. "+
			"The file name is derived from the title; read "+ResourceURI+" for the naming rules."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Record title: letters, digits, spaces, '-' and '_'")),
		mcp.WithString("dir", mcp.Description("Vault-relative directory (or a file in it) the record belongs to")),
		mcp.WithString("date", mcp.Description("Date stamp YYYYMMDD, defaults to today")),
	), s.createRecord)

	s.mcp.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Read a decision record with its title, status and the files that reference it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the record")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List indexed decision records with their title and status."),
		mcp.WithString("status", mcp.Description("Only records with this status (case-insensitive)")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Full-text search through record titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("validate_input",
		mcp.WithDescription("Check a record title, file prefix, directory name or path against the adrlens rules."),
		mcp.WithString("kind", mcp.Required(), mcp.Enum(
			string(validate.KindTitle),
			string(validate.KindPrefix),
			string(validate.KindDirectory),
			string(validate.KindPath),
		)),
		mcp.WithString("value", mcp.Required(), mcp.Description("Value to check")),
	), s.validateInput)

	s.mcp.AddResource(
		mcp.NewResource(ResourceURI, "Record Format",
			mcp.WithResourceDescription("Naming, layout and reference rules for decision records."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormat,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("record already exists")
	case errors.Is(err, apperr.ErrInvalidTitle):
		return mcp.NewToolResultError("invalid title: use 1-100 letters, digits, spaces, '-' or '_'")
	case errors.Is(err, apperr.ErrInvalidDate):
		return mcp.NewToolResultError("invalid date: use YYYYMMDD")
	case errors.Is(err, apperr.ErrInvalidPath):
		return mcp.NewToolResultError("invalid path")
	case errors.Is(err, apperr.ErrUnsafeDirectory):
		return mcp.NewToolResultError("unsafe directory name")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) scanReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.TrimSpace(req.GetString("path", ""))
	if path != "" {
		res, err := s.svc.ScanFile(ctx, path)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(res)
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("path or text is required"), nil
	}
	return jsonResult(recordservice.FileReferences{Resolutions: s.svc.ScanBuffer(ctx, text)})
}

func (s *Server) resolveReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("reference")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.ResolveText(ctx, ref)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(p), nil
}

func (s *Server) createRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Create(ctx, recordservice.CreateRequest{
		Title: title,
		Dir:   req.GetString("dir", ""),
		Date:  req.GetString("date", ""),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", rec.Path)), nil
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Get(ctx, path)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(rec)
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.svc.Records(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	status := req.GetString("status", "")
	var lines []string
	for _, r := range recs {
		if status != "" && !strings.EqualFold(r.Status, status) {
			continue
		}
		line := r.Path + "\t" + r.Title
		if r.Status != "" {
			line += "\t" + r.Status
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no records found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results)
}

func (s *Server) validateInput(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// An empty value is a legitimate input and validates as invalid.
	value := req.GetString("value", "")
	switch validate.Kind(kind) {
	case validate.KindTitle, validate.KindPrefix, validate.KindDirectory, validate.KindPath:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", kind)), nil
	}
	return jsonResult(validate.Check(validate.Kind(kind), value, s.paths))
}

func (s *Server) readRecordFormat(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ResourceURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
