package weather_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/weatherboard/server/internal/session"
	"github.com/weatherboard/server/internal/store"
	"github.com/weatherboard/server/internal/weather"
)

var testCoords = weather.Coordinates{Latitude: "55.3959", Longitude: "10.3883"}

// fakeSource hands out one reading per call with a strictly increasing
// timestamp, or fails when err is set.
type fakeSource struct {
	calls int
	err   error
}

func (f *fakeSource) FetchCurrent(_ context.Context, _ weather.Coordinates, params []weather.Parameter) (weather.Reading, error) {
	if f.err != nil {
		return weather.Reading{}, f.err
	}
	f.calls++

	reading := weather.Reading{
		Timestamp: fmt.Sprintf("2024-01-01T00:%02d", f.calls*15),
		Values:    make(map[weather.Parameter]float64, len(params)),
	}
	for i, p := range params {
		reading.Values[p] = float64(i) + float64(f.calls)/10
	}
	return reading, nil
}

type countingHub struct {
	published int
}

func (h *countingHub) Publish() { h.published++ }

type countingStarter struct {
	started int
	err     error
}

func (s *countingStarter) Start() error {
	if s.err != nil {
		return s.err
	}
	s.started++
	return nil
}

type fixture struct {
	service *weather.Service
	store   *store.MemoryStore
	session *session.State
	source  *fakeSource
	hub     *countingHub
	starter *countingStarter
}

func newFixture() *fixture {
	f := &fixture{
		store:   store.NewMemoryStore(),
		session: session.New(),
		source:  &fakeSource{},
		hub:     &countingHub{},
		starter: &countingStarter{},
	}
	f.service = weather.NewService(f.store, f.source, f.session, f.hub, zap.NewNop())
	f.service.AttachRefreshStarter(f.starter)
	return f
}

func TestQueryMissingCoordinates(t *testing.T) {
	f := newFixture()

	for _, coords := range []weather.Coordinates{
		{},
		{Latitude: "55.3959"},
		{Longitude: "10.3883"},
	} {
		if _, err := f.service.Query(context.Background(), coords); !errors.Is(err, weather.ErrMissingCoordinates) {
			t.Fatalf("expected ErrMissingCoordinates for %+v, got %v", coords, err)
		}
	}

	if f.session.IsActive() {
		t.Fatal("invalid queries must not start a session")
	}
}

func TestFirstQueryStartsSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Leftovers from a previous run must be purged by the session start.
	f.store.Insert(ctx, weather.Observation{
		Timestamp: "2023-12-31T23:47", Parameter: weather.ParamRain, Value: 9.9,
	})

	series, err := f.service.Query(ctx, testCoords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(series) != len(weather.AllowedParameters()) {
		t.Fatalf("expected one series per allowed parameter, got %d", len(series))
	}
	for i, ps := range series {
		if ps.Param != weather.AllowedParameters()[i] {
			t.Fatalf("series %d: expected %s, got %s", i, weather.AllowedParameters()[i], ps.Param)
		}
		if len(ps.Dataset) != 1 {
			t.Fatalf("expected exactly one datapoint for %s, got %d", ps.Param, len(ps.Dataset))
		}
		if ps.Dataset[0].Key == "2023-12-31T23:47" {
			t.Fatal("stale observation survived the session start purge")
		}
	}

	if !f.session.IsActive() {
		t.Fatal("expected session to be active")
	}
	if f.starter.started != 1 {
		t.Fatalf("expected scheduler started once, got %d", f.starter.started)
	}
	if f.source.calls != 1 {
		t.Fatalf("expected one fetch, got %d", f.source.calls)
	}
}

// TestSecondQueryIsIdempotentRead: with a session active, any
// coordinates return the current store contents and trigger nothing.
func TestSecondQueryIsIdempotentRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.Query(ctx, testCoords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := f.service.Query(ctx, weather.Coordinates{Latitude: "0", Longitude: "0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(second) != len(first) {
		t.Fatalf("expected identical datasets, got %d vs %d series", len(second), len(first))
	}
	for i := range first {
		if second[i].Param != first[i].Param || len(second[i].Dataset) != len(first[i].Dataset) {
			t.Fatalf("dataset changed on idempotent read: %+v vs %+v", second[i], first[i])
		}
	}

	if f.source.calls != 1 {
		t.Fatalf("second query must not fetch; fetches: %d", f.source.calls)
	}
	if f.starter.started != 1 {
		t.Fatalf("second query must not start the scheduler again; starts: %d", f.starter.started)
	}
}

func TestRefreshCycleAppendsAndBroadcastsOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.Query(ctx, testCoords); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const ticks = 3
	for i := 0; i < ticks; i++ {
		if err := f.service.RefreshCycle(ctx); err != nil {
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}

	series, err := f.store.AllGroupedByParameter(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ps := range series {
		if len(ps.Dataset) != ticks+1 {
			t.Fatalf("expected %d datapoints for %s, got %d", ticks+1, ps.Param, len(ps.Dataset))
		}
		for i := 1; i < len(ps.Dataset); i++ {
			if ps.Dataset[i-1].Key >= ps.Dataset[i].Key {
				t.Fatalf("timestamps for %s not strictly increasing: %q then %q",
					ps.Param, ps.Dataset[i-1].Key, ps.Dataset[i].Key)
			}
		}
	}

	if f.hub.published != ticks {
		t.Fatalf("expected %d broadcasts, got %d", ticks, f.hub.published)
	}
}

func TestRefreshCycleFetchFailureSkips(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.Query(ctx, testCoords); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.source.err = errors.New("upstream down")
	if err := f.service.RefreshCycle(ctx); err == nil {
		t.Fatal("expected refresh to fail")
	}

	series, _ := f.store.AllGroupedByParameter(ctx)
	for _, ps := range series {
		if len(ps.Dataset) != 1 {
			t.Fatalf("failed cycle must not write; %s has %d datapoints", ps.Param, len(ps.Dataset))
		}
	}
	if f.hub.published != 0 {
		t.Fatalf("failed cycle must not broadcast; got %d", f.hub.published)
	}
}

func TestRefreshCycleRequiresSession(t *testing.T) {
	f := newFixture()

	if err := f.service.RefreshCycle(context.Background()); !errors.Is(err, weather.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

// TestInitialFetchFailure: a failed first fetch surfaces to the caller,
// leaves the session claimed, and never starts the scheduler.
func TestInitialFetchFailure(t *testing.T) {
	f := newFixture()
	f.source.err = errors.New("upstream down")

	if _, err := f.service.Query(context.Background(), testCoords); err == nil {
		t.Fatal("expected the initial fetch failure to propagate")
	}

	if !f.session.IsActive() {
		t.Fatal("session stays claimed after a failed initial fetch")
	}
	if f.starter.started != 0 {
		t.Fatalf("scheduler must not start after a failed initial fetch; starts: %d", f.starter.started)
	}
	if f.hub.published != 0 {
		t.Fatalf("no broadcast on session start; got %d", f.hub.published)
	}
}
