// Package template holds the built-in record templates and selects the one
// a new record starts from.
package template

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/starford/adrlens/internal/apperr"
	"github.com/starford/adrlens/internal/validate"
)

// Built-in template names.
const (
	DefaultFrench  = "default-fr"
	DefaultEnglish = "default-en"
	MADREnglish    = "madr-en"
	MADRFrench     = "madr-fr"
)

// DefaultName is used when the configured name is unknown.
const DefaultName = DefaultFrench

// maxCustomSize bounds a custom template file.
const maxCustomSize = 1 << 20

var errInvalidPath = fmt.Errorf("template: custom path: %w", apperr.ErrInvalidPath)

var builtins = map[string]string{
	DefaultFrench:  defaultFrench,
	DefaultEnglish: defaultEnglish,
	MADREnglish:    madrEnglish,
	MADRFrench:     madrFrench,
}

// Names returns the built-in template names, sorted.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for n := range builtins {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Get returns the built-in template called name.
func Get(name string) (string, bool) {
	t, ok := builtins[name]
	return t, ok
}

// Picker chooses the template for new records.
type Picker struct {
	Name       string
	CustomPath string
	Paths      *validate.PathValidator
	Logger     *slog.Logger
}

// Pick returns the template content. A readable custom template under an
// allowed path wins; otherwise the named built-in, falling back to
// DefaultName with a warning when the name is unknown.
func (p Picker) Pick() string {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if path := strings.TrimSpace(p.CustomPath); path != "" {
		content, err := p.readCustom(path)
		if err == nil {
			return content
		}
		logger.Warn("custom template unreadable, using built-in",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
	if t, ok := builtins[p.Name]; ok {
		return t
	}
	logger.Warn("unknown template, using default",
		slog.String("template", p.Name),
		slog.String("default", DefaultName))
	return builtins[DefaultName]
}

func (p Picker) readCustom(path string) (string, error) {
	pv := p.Paths
	if pv == nil {
		pv = validate.NewPathValidator()
	}
	if !pv.Valid(path) {
		return "", errInvalidPath
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() || info.Size() > maxCustomSize {
		return "", errInvalidPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Render returns tpl with its first level-one heading replaced by title.
// A template without one gets the heading prepended.
func Render(tpl, title string) string {
	var b strings.Builder
	sc := bufio.NewScanner(strings.NewReader(tpl))
	sc.Buffer(make([]byte, 0, 64*1024), maxCustomSize)
	replaced := false
	for sc.Scan() {
		line := sc.Text()
		if !replaced && strings.HasPrefix(line, "# ") {
			line = "# " + title
			replaced = true
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if !replaced {
		return "# " + title + "\n\n" + tpl
	}
	return b.String()
}
