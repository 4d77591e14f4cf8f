// Package reference finds references to decision records in arbitrary text
// and resolves them to record files.
//
// A Matcher is compiled from the configured file prefix, a Scanner applies
// it to a Document under a match ceiling, a Cache memoises scans per
// document version and a Resolver maps a match to a Candidate path. Engine
// wires the four together behind the feature switch.
package reference

import (
	"context"
	"log/slog"
	"sync"
)

// Settings is the part of the configuration the engine reads.
type Settings struct {
	Prefix        string
	Enabled       bool
	DirectoryName string
}

// State is the resolution state of a single match.
type State int

const (
	Unresolved State = iota
	Resolving
	Resolved
	NotFound
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Resolution is the outcome of resolving one match.
type Resolution struct {
	Match  Match     `json:"match"`
	State  State     `json:"state"`
	Target Candidate `json:"target,omitempty"`
}

// Found reports whether the match resolved to a record.
func (r Resolution) Found() bool { return r.State == Resolved }

// Engine scans documents and resolves their references according to the
// current Settings. All methods are safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	settings Settings
	matcher  *Matcher

	maxMatches int
	scanner    *Scanner
	cache      *Cache
	resolver   *Resolver
	lister     Lister
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithMaxMatches sets the per-scan match ceiling.
func WithMaxMatches(n int) EngineOption {
	return func(e *Engine) { e.maxMatches = n }
}

// NewEngine builds an engine over cache and lister. A nil cache gets a
// fresh one with the default eviction interval.
func NewEngine(s Settings, cache *Cache, lister Lister, opts ...EngineOption) *Engine {
	e := &Engine{cache: cache, lister: lister, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewCache(0)
	}
	e.scanner = NewScanner(e.maxMatches, e.logger)
	e.resolver = NewResolver(e.logger)
	e.settings = s
	e.matcher = e.compile(s.Prefix)
	return e
}

func (e *Engine) compile(prefix string) *Matcher {
	m := Compile(prefix)
	if m.Fallback() {
		e.logger.Warn("unsafe record prefix in configuration, using default",
			slog.String("configured", prefix),
			slog.String("prefix", m.Prefix()))
	}
	return m
}

// Reload applies new settings. The matcher is rebuilt and the cache
// cleared only when the prefix changed.
func (e *Engine) Reload(s Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.Prefix != e.settings.Prefix {
		e.matcher = e.compile(s.Prefix)
		e.cache.Clear()
	}
	e.settings = s
}

// Settings returns the current settings.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Matcher returns the current matcher.
func (e *Engine) Matcher() *Matcher {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher
}

// Enabled reports whether scanning and resolution are switched on.
func (e *Engine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings.Enabled
}

// Cache returns the scan cache, for invalidation by file watchers.
func (e *Engine) Cache() *Cache { return e.cache }

// Scan returns the references in doc. When the engine is disabled it
// returns nil without consulting the cache. A scan still running when
// Reload changes the prefix does not leave its result in the cache.
func (e *Engine) Scan(doc Document) []Match {
	e.mu.RLock()
	enabled, m := e.settings.Enabled, e.matcher
	gen := e.cache.Generation()
	e.mu.RUnlock()
	if !enabled {
		return nil
	}
	return e.cache.GetOrComputeAt(doc.Key(), doc.Version(), gen, func() []Match {
		return e.scanner.Scan(doc, m)
	})
}

// ScanUncached scans doc without reading or filling the cache. It still
// honours the feature switch.
func (e *Engine) ScanUncached(doc Document) []Match {
	e.mu.RLock()
	enabled, m := e.settings.Enabled, e.matcher
	e.mu.RUnlock()
	if !enabled {
		return nil
	}
	return e.scanner.Scan(doc, m)
}

// Resolve resolves one match against the engine's lister.
func (e *Engine) Resolve(ctx context.Context, m Match) Resolution {
	return e.ResolveAll(ctx, []Match{m})[0]
}

// ResolveAll resolves matches in order against a single listing. A
// listing error or a done ctx leaves every match NotFound.
func (e *Engine) ResolveAll(ctx context.Context, matches []Match) []Resolution {
	out := make([]Resolution, len(matches))
	for i, m := range matches {
		out[i] = Resolution{Match: m, State: Unresolved}
	}
	if len(matches) == 0 {
		return out
	}

	var candidates []Candidate
	if e.Enabled() && e.lister != nil && ctx.Err() == nil {
		var err error
		if candidates, err = e.lister.List(ctx); err != nil {
			e.logger.Warn("resolve: list candidates failed", slog.String("error", err.Error()))
			candidates = nil
		}
	}

	for i := range out {
		r := &out[i]
		r.State = Resolving
		if target, ok := e.resolver.Resolve(ctx, r.Match.Reference(), candidates); ok {
			r.State, r.Target = Resolved, target
			continue
		}
		r.State = NotFound
	}
	return out
}

// ResolveText resolves free reference text, as typed by a user, against
// the engine's lister.
func (e *Engine) ResolveText(ctx context.Context, text string) (Candidate, bool) {
	if !e.Enabled() || e.lister == nil {
		return "", false
	}
	return e.resolver.ResolveFrom(ctx, text, e.lister)
}
