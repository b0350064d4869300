package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable signals that the search service cannot be reached.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrDocumentNotFound signals a delete of a document absent from the index.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrSchemaFieldUnresolvable signals a schema field that neither a stored
	// attribute nor an accessor could produce.
	ErrSchemaFieldUnresolvable = errors.New("schema field unresolvable")
	// ErrPartialBulkFailure signals that some documents of a bulk run were rejected.
	ErrPartialBulkFailure = errors.New("partial bulk failure")
	// ErrInvalidSchema signals an invalid schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrUnknownType signals a content type that is not registered for indexing.
	ErrUnknownType = errors.New("unknown indexable type")
	// ErrEntityNotFound signals a primary key absent from the authoritative store.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrRebuildInProgress signals that another rebuild holds the lock.
	ErrRebuildInProgress = errors.New("rebuild already in progress")
	// ErrTextSearchNotSupported signals that the backend lacks full-text search.
	ErrTextSearchNotSupported = errors.New("text search not supported by backend")
)

// UnresolvableFieldError wraps ErrSchemaFieldUnresolvable with the failing field.
type UnresolvableFieldError struct {
	ContentType string
	Field       string
	PK          int64
}

func (e *UnresolvableFieldError) Error() string {
	return fmt.Sprintf("%s: %s.%s (pk=%d)", ErrSchemaFieldUnresolvable.Error(), e.ContentType, e.Field, e.PK)
}

func (e *UnresolvableFieldError) Unwrap() error { return ErrSchemaFieldUnresolvable }

// PartialBulkFailureError wraps ErrPartialBulkFailure with the failure counts.
type PartialBulkFailureError struct {
	Failed int
	Total  int
}

func (e *PartialBulkFailureError) Error() string {
	return fmt.Sprintf("%s: %d of %d documents failed", ErrPartialBulkFailure.Error(), e.Failed, e.Total)
}

func (e *PartialBulkFailureError) Unwrap() error { return ErrPartialBulkFailure }
