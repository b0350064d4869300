package indexsync

import (
	"github.com/kailas-cloud/indexsync/internal/domain"
	searchuc "github.com/kailas-cloud/indexsync/internal/usecase/search"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrBackendUnavailable      = domain.ErrBackendUnavailable
	ErrSchemaFieldUnresolvable = domain.ErrSchemaFieldUnresolvable
	ErrPartialBulkFailure      = domain.ErrPartialBulkFailure
	ErrInvalidSchema           = domain.ErrInvalidSchema
	ErrUnknownType             = domain.ErrUnknownType
	ErrEntityNotFound          = domain.ErrEntityNotFound
	ErrRebuildInProgress       = domain.ErrRebuildInProgress
	ErrTextSearchNotSupported  = domain.ErrTextSearchNotSupported
	ErrInvalidQuery            = searchuc.ErrInvalidQuery
)
