package errors

import (
	"context"
	"errors"
)

// Logger is the subset of logging.Logger the handler needs.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler logs build failures with fields derived from their code.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err. Structural problems in the site sources (missing files,
// cycles, undeclared templates) are warnings the author can fix while the
// watcher keeps running; everything else is an error.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var se *SiteError
	if !errors.As(err, &se) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch se.Type {
	case ErrorTypeNotFound, ErrorTypeStructure:
		h.logger.Warn(ctx, se, "Site source error",
			"type", se.Type,
			"code", se.Code,
			"file", se.Path)
	default:
		h.logger.Error(ctx, se, "Build error occurred",
			"type", se.Type,
			"code", se.Code,
			"file", se.Path)
	}
}
