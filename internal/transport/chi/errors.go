package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain"
	logpkg "github.com/kailas-cloud/indexsync/internal/logger"
	"github.com/kailas-cloud/indexsync/internal/usecase/notify"
)

// ErrorCode is the machine-readable error code of an API error response.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeTypeNotFound           ErrorCode = "type_not_found"
	CodeEntityNotFound         ErrorCode = "entity_not_found"
	CodeFieldUnresolvable      ErrorCode = "field_unresolvable"
	CodeRebuildInProgress      ErrorCode = "rebuild_in_progress"
	CodeTextSearchNotSupported ErrorCode = "text_search_not_supported"
	CodeBackendUnavailable     ErrorCode = "backend_unavailable"
	CodeShuttingDown           ErrorCode = "shutting_down"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		unresolvableFieldHandler,
		sentinelHandler(domain.ErrUnknownType, http.StatusNotFound, CodeTypeNotFound),
		sentinelHandler(domain.ErrEntityNotFound, http.StatusNotFound, CodeEntityNotFound),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrRebuildInProgress, http.StatusConflict, CodeRebuildInProgress),
		sentinelHandler(domain.ErrTextSearchNotSupported, http.StatusNotImplemented, CodeTextSearchNotSupported),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, CodeBackendUnavailable),
		sentinelHandler(notify.ErrClosed, http.StatusServiceUnavailable, CodeShuttingDown),
	}
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// unresolvableFieldHandler reports which field of which entity could not be encoded.
func unresolvableFieldHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrSchemaFieldUnresolvable) {
		return false
	}
	var ufe *domain.UnresolvableFieldError
	if errors.As(err, &ufe) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code":         CodeFieldUnresolvable,
			"message":      msg,
			"content_type": ufe.ContentType,
			"field":        ufe.Field,
			"pk":           ufe.PK,
		})
		return true
	}
	writeError(w, http.StatusUnprocessableEntity, CodeFieldUnresolvable, msg)
	return true
}

// handleDomainError maps err to a response, logging through the request logger.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnknownType,
		domain.ErrEntityNotFound,
		domain.ErrSchemaFieldUnresolvable,
		domain.ErrInvalidSchema,
		domain.ErrRebuildInProgress,
		domain.ErrTextSearchNotSupported,
		domain.ErrBackendUnavailable,
		notify.ErrClosed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
