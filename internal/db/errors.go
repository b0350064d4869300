package db

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend operations.
var (
	ErrKeyNotFound            = errors.New("db: key not found")
	ErrIndexNotFound          = errors.New("db: index not found")
	ErrIndexExists            = errors.New("db: index already exists")
	ErrDocumentNotFound       = errors.New("db: document not found")
	ErrUnavailable            = errors.New("db: backend unavailable")
	ErrTextSearchNotSupported = errors.New("db: text search not supported")
	ErrUnknownDriver          = errors.New("db: unknown driver")
	ErrUnknownConnection      = errors.New("db: unknown connection")
	ErrUnknownSerializer      = errors.New("db: unknown serializer")
)

// Op constants name backend operations for error context.
const (
	OpPing        = "PING"
	OpCreateIndex = "FT.CREATE"
	OpAlterIndex  = "FT.ALTER"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpDel         = "DEL"
	OpHSet        = "HSET"
	OpHMGet       = "HMGET"
	OpExists      = "EXISTS"
	OpScan        = "SCAN"
	OpGet         = "GET"
	OpSet         = "SET"
	OpBulk        = "BULK"
	OpOpen        = "OPEN"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Unavailable wraps a transport-level failure so callers can match ErrUnavailable.
func Unavailable(op string, err error) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
}
