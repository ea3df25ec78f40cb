// Package errors defines the structured error type shared by every stage of
// the site build. All failures surfaced by the build pipeline are *SiteError
// values so the CLI can catch a single base type, print it and exit.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType groups error codes into broad categories.
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeStructure  ErrorType = "structure"
	ErrorTypeState      ErrorType = "state"
	ErrorTypeValidation ErrorType = "validation"
)

// Error codes.
const (
	ErrCodeTemplateNotFound           = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeTemplateRead               = "ERR_TEMPLATE_READ"
	ErrCodePartialNotFound            = "ERR_PARTIAL_NOT_FOUND"
	ErrCodePartialRead                = "ERR_PARTIAL_READ"
	ErrCodePageNotFound               = "ERR_PAGE_NOT_FOUND"
	ErrCodePageRead                   = "ERR_PAGE_READ"
	ErrCodePageOutput                 = "ERR_PAGE_OUTPUT"
	ErrCodeSiteOutput                 = "ERR_SITE_OUTPUT"
	ErrCodeMissingTemplateDeclaration = "ERR_MISSING_TEMPLATE_DECLARATION"
	ErrCodeSiteNotLoaded              = "ERR_SITE_NOT_LOADED"
	ErrCodeCycleDetected              = "ERR_CYCLE_DETECTED"
	ErrCodeInvalidSite                = "ERR_INVALID_SITE"
	ErrCodeScaffoldTarget             = "ERR_SCAFFOLD_TARGET"
)

// Sentinels for use with errors.Is. Comparison is by code only.
var (
	ErrTemplateNotFound           = &SiteError{Type: ErrorTypeNotFound, Code: ErrCodeTemplateNotFound}
	ErrTemplateReadFailure        = &SiteError{Type: ErrorTypeIO, Code: ErrCodeTemplateRead}
	ErrPartialNotFound            = &SiteError{Type: ErrorTypeNotFound, Code: ErrCodePartialNotFound}
	ErrPartialReadFailure         = &SiteError{Type: ErrorTypeIO, Code: ErrCodePartialRead}
	ErrPageNotFound               = &SiteError{Type: ErrorTypeNotFound, Code: ErrCodePageNotFound}
	ErrPageReadFailure            = &SiteError{Type: ErrorTypeIO, Code: ErrCodePageRead}
	ErrPageOutputFailure          = &SiteError{Type: ErrorTypeIO, Code: ErrCodePageOutput}
	ErrSiteOutputFailure          = &SiteError{Type: ErrorTypeIO, Code: ErrCodeSiteOutput}
	ErrMissingTemplateDeclaration = &SiteError{Type: ErrorTypeStructure, Code: ErrCodeMissingTemplateDeclaration}
	ErrSiteNotLoaded              = &SiteError{Type: ErrorTypeState, Code: ErrCodeSiteNotLoaded}
	ErrCycleDetected              = &SiteError{Type: ErrorTypeStructure, Code: ErrCodeCycleDetected}
	ErrInvalidSite                = &SiteError{Type: ErrorTypeValidation, Code: ErrCodeInvalidSite}
	ErrScaffoldTarget             = &SiteError{Type: ErrorTypeValidation, Code: ErrCodeScaffoldTarget}
)

// SiteError is a structured error with the file it concerns and the
// underlying cause, if any.
type SiteError struct {
	Type    ErrorType
	Code    string
	Message string
	Path    string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface. The cause's message is preserved
// verbatim after the error's own message.
func (e *SiteError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += ": " + e.Cause.Error()
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *SiteError with the same code.
func (e *SiteError) Is(target error) bool {
	var t *SiteError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *SiteError) WithContext(key string, value interface{}) *SiteError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

func newError(sentinel *SiteError, message, path string, cause error) *SiteError {
	return &SiteError{
		Type:    sentinel.Type,
		Code:    sentinel.Code,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// TemplateNotFound reports a template reference to a file that does not exist.
func TemplateNotFound(path string) *SiteError {
	return newError(ErrTemplateNotFound, "template not found:", path, nil)
}

// TemplateReadFailure wraps an I/O error raised while reading a template.
func TemplateReadFailure(path string, cause error) *SiteError {
	return newError(ErrTemplateReadFailure, "failed to read template", path, cause)
}

// PartialNotFound reports a partial reference to a file that does not exist.
func PartialNotFound(path string) *SiteError {
	return newError(ErrPartialNotFound, "partial not found:", path, nil)
}

// PartialReadFailure wraps an I/O error raised while reading a partial.
func PartialReadFailure(path string, cause error) *SiteError {
	return newError(ErrPartialReadFailure, "failed to read partial", path, cause)
}

// PageNotFound reports a page path that does not exist.
func PageNotFound(path string) *SiteError {
	return newError(ErrPageNotFound, "page not found:", path, nil)
}

// PageReadFailure wraps an I/O error raised while reading a page.
func PageReadFailure(path string, cause error) *SiteError {
	return newError(ErrPageReadFailure, "failed to read page", path, cause)
}

// PageOutputFailure wraps a directory-creation or write error for a page.
func PageOutputFailure(path string, cause error) *SiteError {
	return newError(ErrPageOutputFailure, "failed to write page output", path, cause)
}

// SiteOutputFailure wraps an error raised while publishing site output.
func SiteOutputFailure(path string, cause error) *SiteError {
	return newError(ErrSiteOutputFailure, "failed to publish site output", path, cause)
}

// MissingTemplateDeclaration reports text that defines sections without
// declaring the template they belong to.
func MissingTemplateDeclaration(path string, sections []string) *SiteError {
	return newError(ErrMissingTemplateDeclaration, "sections found without a template declaration in", path, nil).
		WithContext("sections", sections)
}

// SiteNotLoaded reports an operation invoked before the site root was loaded.
func SiteNotLoaded(operation string) *SiteError {
	return newError(ErrSiteNotLoaded, "site must be loaded before "+operation, "", nil)
}

// CycleDetected reports a template or partial chain that never terminates.
func CycleDetected(path string, chain []string) *SiteError {
	msg := "inclusion cycle detected"
	if len(chain) > 0 {
		msg += " (" + strings.Join(chain, " -> ") + ")"
	}
	return newError(ErrCycleDetected, msg+" in", path, nil).WithContext("chain", chain)
}

// InvalidSite reports a site root that cannot be loaded.
func InvalidSite(path string, cause error) *SiteError {
	return newError(ErrInvalidSite, "invalid site root", path, cause)
}

// ScaffoldTarget reports a directory a new site cannot be created in.
func ScaffoldTarget(path string, cause error) *SiteError {
	return newError(ErrScaffoldTarget, "cannot create site in", path, cause)
}

// IsNotFound reports whether err is any of the not-found kinds.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsType reports whether err is a *SiteError of the given type.
func IsType(err error, errType ErrorType) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type == errType
	}

	return false
}

// Code returns the code of the outermost *SiteError in err's chain, or "".
func Code(err error) string {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Code
	}

	return ""
}
