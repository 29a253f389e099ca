package weather

import "context"

// Store is the contract the observation stores (in-memory and any
// persistent store) must satisfy. Reads return everything: there is no
// location or time-window filtering, the purge on session start is
// what keeps the contents coherent.
type Store interface {
	Insert(ctx context.Context, obs Observation) error
	DeleteAll(ctx context.Context) error
	AllGroupedByParameter(ctx context.Context) ([]ParameterSeries, error)
}

// Source abstracts the upstream forecast provider.
type Source interface {
	FetchCurrent(ctx context.Context, coords Coordinates, params []Parameter) (Reading, error)
}

// Session gates the single active request configuration for the
// process. TryStart must have single-winner semantics under
// concurrent callers.
type Session interface {
	TryStart(coords Coordinates, params []Parameter) bool
	IsActive() bool
	Config() (Coordinates, []Parameter)
}

// Broadcaster fans a data-changed signal out to connected viewers.
// Delivery is best-effort and at-most-once.
type Broadcaster interface {
	Publish()
}

// RefreshStarter is the handle the gateway uses to start the recurring
// refresh job once the first session begins.
type RefreshStarter interface {
	Start() error
}
