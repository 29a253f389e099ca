package session

import (
	"sync"

	"github.com/weatherboard/server/internal/weather"
)

// State holds the single process-wide session configuration: the one
// location and parameter set currently being tracked. All transitions
// happen under the mutex, so concurrent first requests cannot both
// claim the session.
type State struct {
	mu     sync.Mutex
	active bool
	coords weather.Coordinates
	params []weather.Parameter
}

// New creates an inactive session state.
func New() *State {
	return &State{}
}

// TryStart claims the session. Exactly one caller observes true;
// everyone after it, racing or not, gets false and must read the
// current data instead of starting another cycle.
func (s *State) TryStart(coords weather.Coordinates, params []weather.Parameter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return false
	}

	s.active = true
	s.coords = coords
	s.params = append([]weather.Parameter(nil), params...)
	return true
}

// IsActive reports whether a session has been started.
func (s *State) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Config returns the active session's coordinates and parameter set.
// The slice is a copy; callers cannot mutate the session through it.
func (s *State) Config() (weather.Coordinates, []weather.Parameter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coords, append([]weather.Parameter(nil), s.params...)
}

// Reset clears the session so a new one can start. The request path
// never calls this; it exists so tests and shutdown can tear the
// state down deterministically.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	s.coords = weather.Coordinates{}
	s.params = nil
}
