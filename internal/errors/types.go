// Package errors defines the structured error taxonomy shared by every strata
// package. All failures are reported as *SiteError values tagged with a Kind;
// callers match kinds with errors.Is against the exported sentinels and read
// details (location, cycle path, offending identifier) with errors.As.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a SiteError.
type Kind string

const (
	KindFormat             Kind = "format"
	KindQuerySyntax        Kind = "query_syntax"
	KindDuplicateID        Kind = "duplicate_id"
	KindDuplicatePath      Kind = "duplicate_path"
	KindDuplicateURL       Kind = "duplicate_url"
	KindCircularDependency Kind = "circular_dependency"
	KindMissingDependency  Kind = "missing_dependency"
	KindPrecondition       Kind = "precondition"
	KindIO                 Kind = "io"
	KindConfig             Kind = "config"
)

// Sentinels for errors.Is. They match any SiteError of the same kind.
var (
	ErrFormat             = &SiteError{Kind: KindFormat}
	ErrQuerySyntax        = &SiteError{Kind: KindQuerySyntax}
	ErrDuplicateID        = &SiteError{Kind: KindDuplicateID}
	ErrDuplicatePath      = &SiteError{Kind: KindDuplicatePath}
	ErrDuplicateURL       = &SiteError{Kind: KindDuplicateURL}
	ErrCircularDependency = &SiteError{Kind: KindCircularDependency}
	ErrMissingDependency  = &SiteError{Kind: KindMissingDependency}
	ErrPrecondition       = &SiteError{Kind: KindPrecondition}
	ErrIO                 = &SiteError{Kind: KindIO}
	ErrConfig             = &SiteError{Kind: KindConfig}
)

// SiteError is a structured error with location context.
type SiteError struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error

	// FilePath and Line locate config and source file errors.
	FilePath string
	Line     int

	// Fragment and Offset locate query errors. Offset counts characters
	// (runes) from the start of the query text.
	Fragment string
	Offset   int

	// Key is the offending identifier: a record id, path or URL, or a
	// module name.
	Key string

	// Module and Missing describe a missing dependency.
	Module  string
	Missing string

	// Cycle is the ordered module cycle, first and last element equal.
	Cycle []string
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
		}
		parts = append(parts, location+":")
	} else if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d:", e.Line))
	}

	if e.Kind == KindQuerySyntax {
		parts = append(parts, fmt.Sprintf("offset %d near %q:", e.Offset, e.Fragment))
	}

	parts = append(parts, e.Message)

	if len(e.Cycle) > 0 {
		parts = append(parts, "("+strings.Join(e.Cycle, " -> ")+")")
	}

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a SiteError of the same kind. A target with
// a Code only matches errors carrying the same code.
func (e *SiteError) Is(target error) bool {
	var t *SiteError
	if !errors.As(target, &t) {
		return false
	}

	if e.Kind != t.Kind {
		return false
	}

	return t.Code == "" || t.Code == e.Code
}

// WithCode sets a machine-readable code.
func (e *SiteError) WithCode(code string) *SiteError {
	e.Code = code

	return e
}

// WithCause attaches an underlying error.
func (e *SiteError) WithCause(cause error) *SiteError {
	e.Cause = cause

	return e
}

// NewFormatError reports a malformed config line or indentation.
func NewFormatError(filePath string, line int, message string) *SiteError {
	return &SiteError{
		Kind:     KindFormat,
		Message:  message,
		FilePath: filePath,
		Line:     line,
	}
}

// NewQuerySyntaxError reports a malformed filter expression.
func NewQuerySyntaxError(fragment string, offset int, message string) *SiteError {
	return &SiteError{
		Kind:     KindQuerySyntax,
		Message:  message,
		Fragment: fragment,
		Offset:   offset,
	}
}

// NewDuplicateIDError reports an id that is already registered.
func NewDuplicateIDError(id, existing string) *SiteError {
	return &SiteError{
		Kind:    KindDuplicateID,
		Key:     id,
		Message: fmt.Sprintf("id %q already registered by %s", id, existing),
	}
}

// NewDuplicatePathError reports a source path that is already registered.
func NewDuplicatePathError(path, existing string) *SiteError {
	return &SiteError{
		Kind:    KindDuplicatePath,
		Key:     path,
		Message: fmt.Sprintf("path %q already registered by %s", path, existing),
	}
}

// NewDuplicateURLError reports a URL that is already registered.
func NewDuplicateURLError(url, existing string) *SiteError {
	return &SiteError{
		Kind:    KindDuplicateURL,
		Key:     url,
		Message: fmt.Sprintf("url %q already registered by %s", url, existing),
	}
}

// NewCircularDependencyError reports a module cycle.
func NewCircularDependencyError(cycle []string) *SiteError {
	path := make([]string, len(cycle))
	copy(path, cycle)

	var key string
	if len(path) > 0 {
		key = path[0]
	}

	return &SiteError{
		Kind:    KindCircularDependency,
		Key:     key,
		Message: "circular module dependency",
		Cycle:   path,
	}
}

// NewMissingDependencyError reports a dependency on an unregistered module.
func NewMissingDependencyError(module, missing string) *SiteError {
	return &SiteError{
		Kind:    KindMissingDependency,
		Key:     missing,
		Module:  module,
		Missing: missing,
		Message: fmt.Sprintf("module %q depends on unknown module %q", module, missing),
	}
}

// NewPreconditionError reports a programming error such as a double load.
func NewPreconditionError(key, message string) *SiteError {
	return &SiteError{
		Kind:    KindPrecondition,
		Key:     key,
		Message: message,
	}
}

// NewIOError wraps a filesystem failure.
func NewIOError(filePath, message string, cause error) *SiteError {
	return &SiteError{
		Kind:     KindIO,
		Message:  message,
		FilePath: filePath,
		Cause:    cause,
	}
}

// NewConfigError reports invalid runtime settings.
func NewConfigError(key, message string) *SiteError {
	return &SiteError{
		Kind:    KindConfig,
		Key:     key,
		Message: message,
	}
}

// KindOf returns the kind of the first SiteError in err's chain.
func KindOf(err error) (Kind, bool) {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Kind, true
	}

	return "", false
}

// IsDuplicate reports whether err is any of the uniqueness violations.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrDuplicatePath) ||
		errors.Is(err, ErrDuplicateURL)
}

// IsInputError reports whether err was caused by malformed user input
// rather than a programming error or the environment.
func IsInputError(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}

	switch kind {
	case KindFormat, KindQuerySyntax, KindConfig:
		return true
	default:
		return false
	}
}
