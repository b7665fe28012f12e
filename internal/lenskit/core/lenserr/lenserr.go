// Package lenserr provides a structured error type shared across every
// pipeline stage, mirroring how this codebase reports failures with a
// kind, message, cause and a user-facing hint.
package lenserr

import "fmt"

// Kind is the closed set of abstract error kinds the pipeline can raise.
type Kind string

const (
	KindIOError         Kind = "io_error"
	KindSchemaViolation Kind = "schema_violation"
	KindHashMismatch    Kind = "hash_mismatch"
	KindFTSMissing      Kind = "fts_missing"
	KindBM25Missing     Kind = "bm25_missing"
	KindFTSSyntax       Kind = "fts_syntax"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindDecodingError   Kind = "decoding_error"
	KindStaleIndex      Kind = "stale_index"
	KindForbiddenPattern Kind = "forbidden_pattern"
	KindZoneAsymmetry   Kind = "zone_asymmetry"
	KindConfigInvalid   Kind = "config_invalid"
)

// LensError is the structured error type returned by every component.
type LensError struct {
	Kind    Kind
	Message string
	Cause   error
	Hint    string
}

func (e *LensError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *LensError) Unwrap() error {
	return e.Cause
}

// WithHint attaches a user-facing hint and returns the same error for
// chaining at the construction site.
func (e *LensError) WithHint(hint string) *LensError {
	e.Hint = hint
	return e
}

// FormatWithHint renders the error message followed by its hint, if any.
func (e *LensError) FormatWithHint() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s\n  Hint: %s", e.Error(), e.Hint)
	}
	return e.Error()
}

func New(kind Kind, message string, cause error) *LensError {
	return &LensError{Kind: kind, Message: message, Cause: cause}
}

func IOError(op, path string, cause error) *LensError {
	return New(KindIOError, fmt.Sprintf("%s failed for %s", op, path), cause).
		WithHint("Check the path exists and is readable.")
}

func SchemaViolation(schemaID string, cause error) *LensError {
	return New(KindSchemaViolation, fmt.Sprintf("document does not satisfy schema %s", schemaID), cause)
}

func HashMismatch(path string) *LensError {
	return New(KindHashMismatch, fmt.Sprintf("content hash mismatch for %s", path), nil).
		WithHint("The artifact on disk no longer matches its recorded hash; regenerate it.")
}

func FTSMissing() *LensError {
	return New(KindFTSMissing, "full-text search is not available on this index", nil).
		WithHint("Rebuild the index with the bundled sqlite build; FTS5 support is required.")
}

func BM25Missing() *LensError {
	return New(KindBM25Missing, "bm25 ranking is not available on this index", nil)
}

func FTSSyntax(query string, cause error) *LensError {
	return New(KindFTSSyntax, fmt.Sprintf("invalid full-text query: %q", query), cause).
		WithHint("Quote phrases containing punctuation or special FTS5 operators.")
}

func OutOfBounds(artifactRole string, start, end, size int) *LensError {
	return New(KindOutOfBounds, fmt.Sprintf("range [%d,%d) is out of bounds for %s (size %d)", start, end, artifactRole, size), nil)
}

func DecodingError(path string, cause error) *LensError {
	return New(KindDecodingError, fmt.Sprintf("failed to decode %s as UTF-8", path), cause)
}

func StaleIndex(reason string) *LensError {
	return New(KindStaleIndex, fmt.Sprintf("index appears stale: %s", reason), nil)
}

func ForbiddenPattern(pattern string) *LensError {
	return New(KindForbiddenPattern, fmt.Sprintf("content matches forbidden pattern %q", pattern), nil)
}

func ZoneAsymmetry(zoneType, id string) *LensError {
	return New(KindZoneAsymmetry, fmt.Sprintf("zone %s id=%s has no matching end marker", zoneType, id), nil)
}

func ConfigInvalid(field string, cause error) *LensError {
	return New(KindConfigInvalid, fmt.Sprintf("invalid configuration for %s", field), cause)
}

// Format renders err the way the CLI prints to stderr: the message and
// hint if err is a *LensError, otherwise err.Error() verbatim.
func Format(err error) string {
	if le, ok := err.(*LensError); ok {
		return le.FormatWithHint()
	}
	return err.Error()
}
