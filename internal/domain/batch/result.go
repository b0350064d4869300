package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of indexing one document in a bulk run.
type Result struct {
	contentType string
	pk          int64
	status      ItemStatus
	err         error
}

// NewOK creates a successful batch result.
func NewOK(contentType string, pk int64) Result {
	return Result{contentType: contentType, pk: pk, status: StatusOK}
}

// NewError creates a failed batch result.
func NewError(contentType string, pk int64, err error) Result {
	return Result{contentType: contentType, pk: pk, status: StatusError, err: err}
}

// ContentType returns the content type of the document.
func (r Result) ContentType() string { return r.contentType }

// PK returns the document's primary key.
func (r Result) PK() int64 { return r.pk }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// OK reports whether the document was indexed.
func (r Result) OK() bool { return r.status == StatusOK }
