package validate

// Kind names one of the validated input classes.
type Kind string

const (
	KindTitle     Kind = "title"
	KindPrefix    Kind = "prefix"
	KindDirectory Kind = "directory"
	KindPath      Kind = "path"
)

// Outcome is the result of Check. Sanitized is only set for titles.
type Outcome struct {
	Valid     bool   `json:"valid"`
	Sanitized string `json:"sanitized,omitempty"`
}

// Check runs the validator for kind against value. Paths are checked with
// pv, or in permissive mode when pv is nil. Unknown kinds are invalid.
func Check(kind Kind, value string, pv *PathValidator) Outcome {
	switch kind {
	case KindTitle:
		s, ok := SanitizeTitle(value)
		return Outcome{Valid: ok, Sanitized: s}
	case KindPrefix:
		return Outcome{Valid: Prefix(value)}
	case KindDirectory:
		return Outcome{Valid: DirectoryName(value)}
	case KindPath:
		if pv == nil {
			pv = defaultPaths
		}
		return Outcome{Valid: pv.Valid(value)}
	default:
		return Outcome{}
	}
}
