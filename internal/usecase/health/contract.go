package health

import "context"

// SearchPinger checks search backend availability.
type SearchPinger interface {
	Ping(ctx context.Context) error
}

// DBPinger checks authoritative database availability.
type DBPinger interface {
	PingContext(ctx context.Context) error
}
