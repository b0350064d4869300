package rebuild

// EventKind identifies a rebuild progress event.
type EventKind int

// Progress events emitted during IndexDocuments.
const (
	EventMappingSaved EventKind = iota
	EventDocumentIndexed
	EventDocumentFailed
)

func (k EventKind) String() string {
	switch k {
	case EventMappingSaved:
		return "mapping_saved"
	case EventDocumentIndexed:
		return "document_indexed"
	case EventDocumentFailed:
		return "document_failed"
	}
	return "unknown"
}

// Event reports rebuild progress. PK and Err are set for document events only.
type Event struct {
	Kind        EventKind
	ContentType string
	MappingName string
	PK          int64
	Err         error
}

// Observer receives progress events. It is called from a single goroutine.
type Observer func(Event)
