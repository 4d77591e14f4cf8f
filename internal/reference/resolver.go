package reference

import (
	"context"
	"log/slog"
	"strings"
)

// MaxReferenceLength bounds the text Resolve will look up.
const MaxReferenceLength = 200

// Candidate is the path of a record that a reference may resolve to.
type Candidate string

// Lister supplies the current candidates.
type Lister interface {
	List(ctx context.Context) ([]Candidate, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) ([]Candidate, error)

// List calls f.
func (f ListerFunc) List(ctx context.Context) ([]Candidate, error) { return f(ctx) }

// Resolver maps reference text to the first candidate whose path contains
// it. Candidates keep their given order; there is no ranking.
type Resolver struct {
	contains func(candidate Candidate, text string) bool
	logger   *slog.Logger
}

// NewResolver returns a substring resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		contains: func(c Candidate, text string) bool { return strings.Contains(string(c), text) },
		logger:   logger,
	}
}

// Resolve returns the first candidate containing the trimmed text. Empty
// text, text over MaxReferenceLength bytes and a done ctx resolve to
// nothing. A candidate whose comparison panics is skipped.
func (r *Resolver) Resolve(ctx context.Context, text string, candidates []Candidate) (Candidate, bool) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > MaxReferenceLength {
		return "", false
	}
	if ctx.Err() != nil {
		return "", false
	}
	for _, c := range candidates {
		if r.compare(c, text) {
			return c, true
		}
	}
	return "", false
}

// ResolveFrom lists candidates from l and resolves text against them.
// Listing errors resolve to nothing.
func (r *Resolver) ResolveFrom(ctx context.Context, text string, l Lister) (Candidate, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(trimmed) > MaxReferenceLength || ctx.Err() != nil {
		return "", false
	}
	candidates, err := l.List(ctx)
	if err != nil {
		r.logger.Warn("resolve: list candidates failed", slog.String("error", err.Error()))
		return "", false
	}
	return r.Resolve(ctx, trimmed, candidates)
}

func (r *Resolver) compare(c Candidate, text string) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("resolve: candidate skipped", slog.String("candidate", string(c)))
			ok = false
		}
	}()
	return r.contains(c, text)
}
