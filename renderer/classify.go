package renderer

import (
	"context"
	"errors"

	"github.com/fieldlead/renderbatch/engine"
	"github.com/fieldlead/renderbatch/models"
)

// navErrorTypes maps the engine's Chromium network error codes onto the
// result taxonomy. Codes not listed here fall back to browser_error.
var navErrorTypes = map[string]string{
	engine.NetErrNameNotResolved:    models.ErrorTypeDNS,
	engine.NetErrConnectionRefused:  models.ErrorTypeConnRefused,
	engine.NetErrTimedOut:           models.ErrorTypeConnTimeout,
	engine.NetErrConnectionTimedOut: models.ErrorTypeConnTimeout,
}

// Classify maps a render attempt error onto the fixed errorType taxonomy.
// The checks are ordered: an HTTP status error is never a timeout, and a
// navigation deadline beats whatever wrapper it arrived in.
func Classify(err error) string {
	var statusErr *engine.StatusError
	var navErr *engine.NavError
	var engErr *engine.EngineError

	switch {
	case errors.As(err, &statusErr):
		return models.ErrorTypeHTTP
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrorTypeTimeout
	case errors.As(err, &navErr):
		if t, ok := navErrorTypes[navErr.Code]; ok {
			return t
		}
		return models.ErrorTypeBrowser
	case errors.Is(err, context.Canceled):
		return models.ErrorTypeExecution
	case errors.As(err, &engErr):
		return models.ErrorTypeBrowser
	default:
		return models.ErrorTypeUnexpected
	}
}
