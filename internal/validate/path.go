package validate

import (
	"regexp"
	"strings"
)

// deniedRoots are system locations no record path may point into.
var deniedRoots = []string{
	"/etc/", "/var/", "/usr/", "/bin/", "/sbin/",
	"/tmp/", "/dev/", "/proc/", "/sys/",
}

// injectionMarkers are script fragments that never belong in a path.
var injectionMarkers = []string{"<script>", "alert("}

// testPrefixes are accepted when no workspace root is configured.
var testPrefixes = []string{"/test/", "/some/", "test/", "some/"}

var driveLetter = regexp.MustCompile(`^[A-Z]:/`)

// PathValidator checks file paths against traversal, system locations and
// a set of workspace roots.
type PathValidator struct {
	roots []string
}

// NewPathValidator returns a validator confined to roots. With no roots it
// runs in the permissive mode used outside a workspace: relative paths,
// the test prefixes and drive-letter paths are accepted.
func NewPathValidator(roots ...string) *PathValidator {
	pv := &PathValidator{}
	for _, r := range roots {
		if r = NormalizeRoot(r); r != "" {
			pv.roots = append(pv.roots, r)
		}
	}
	return pv
}

// NormalizeRoot returns root as a PathValidator stores it: trimmed,
// forward slashes, no trailing slash, lower case. A root that normalises
// to "" (such as "/") cannot confine anything and is ignored.
func NormalizeRoot(root string) string {
	return strings.ToLower(strings.TrimRight(NormalizePath(strings.TrimSpace(root)), "/"))
}

// Roots returns the normalised, lower-cased roots.
func (pv *PathValidator) Roots() []string {
	out := make([]string, len(pv.roots))
	copy(out, pv.roots)
	return out
}

// Valid reports whether p is a safe path.
func (pv *PathValidator) Valid(p string) bool {
	if p == "" || len(p) > MaxPathLength {
		return false
	}
	n := NormalizePath(p)

	if strings.Contains(n, "..") || strings.Contains(n, "~") {
		return false
	}
	for _, root := range deniedRoots {
		if strings.HasPrefix(n, root) {
			return false
		}
	}
	for _, marker := range injectionMarkers {
		if strings.Contains(n, marker) {
			return false
		}
	}

	if len(pv.roots) == 0 {
		for _, prefix := range testPrefixes {
			if strings.HasPrefix(n, prefix) {
				return true
			}
		}
		return driveLetter.MatchString(n) || !strings.HasPrefix(n, "/")
	}

	lower := strings.ToLower(n)
	for _, root := range pv.roots {
		if lower == root || strings.HasPrefix(lower, root+"/") {
			return true
		}
	}
	return false
}

// FilePath validates p in permissive (no workspace root) mode.
func FilePath(p string) bool {
	return defaultPaths.Valid(p)
}

var defaultPaths = NewPathValidator()

// NormalizePath converts Windows separators to forward slashes.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
