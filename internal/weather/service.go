package weather

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/weatherboard/server/internal/observability"
)

var (
	// ErrMissingCoordinates is returned when a query omits latitude or
	// longitude. The message is the exact string the HTTP layer serves.
	ErrMissingCoordinates = errors.New("Latitude and longitude are required")

	// ErrNoSession is returned by RefreshCycle when no session has been
	// started yet.
	ErrNoSession = errors.New("no active session")
)

// Service is the query gateway. It orchestrates session start, the
// synchronous first fetch, recurring refresh cycles, and reads of the
// aggregated dataset.
type Service struct {
	store   Store
	source  Source
	session Session
	hub     Broadcaster
	starter RefreshStarter
	log     *zap.Logger
}

// NewService creates a new Service. The refresh starter is attached
// separately because the scheduler needs the service to exist first.
func NewService(store Store, source Source, session Session, hub Broadcaster, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		source:  source,
		session: session,
		hub:     hub,
		log:     log,
	}
}

// AttachRefreshStarter wires the scheduler handle into the gateway.
func (s *Service) AttachRefreshStarter(starter RefreshStarter) {
	s.starter = starter
}

// Query either starts a new session or returns the current aggregated
// dataset, depending on whether one is already active. An active
// session ignores the supplied coordinates entirely: whatever is in
// the store is what the caller gets.
func (s *Service) Query(ctx context.Context, coords Coordinates) ([]ParameterSeries, error) {
	if coords.Latitude == "" || coords.Longitude == "" {
		return nil, ErrMissingCoordinates
	}

	// The fetched set is always the full allowed set, independent of
	// any parameter selection the client made for charting.
	if !s.session.TryStart(coords, AllowedParameters()) {
		return s.store.AllGroupedByParameter(ctx)
	}

	s.log.Info("starting new session",
		zap.String("latitude", coords.Latitude),
		zap.String("longitude", coords.Longitude))

	// A new session owns the store outright; whatever the previous one
	// left behind goes away first. A failed purge is logged but never
	// blocks the session from starting.
	if err := s.store.DeleteAll(ctx); err != nil {
		s.log.Error("failed to delete observations", zap.Error(err))
	}

	if err := s.fetchAndStore(ctx); err != nil {
		// The session stays claimed and the scheduler never starts;
		// the caller sees the failure.
		return nil, err
	}

	if s.starter != nil {
		if err := s.starter.Start(); err != nil {
			return nil, fmt.Errorf("failed to start refresh scheduler: %w", err)
		}
	}

	return s.store.AllGroupedByParameter(ctx)
}

// RefreshCycle runs one scheduled fetch: pull current values, append
// them to the store, and signal connected viewers once. An error means
// the cycle is skipped; the next scheduled tick is the retry.
func (s *Service) RefreshCycle(ctx context.Context) error {
	if !s.session.IsActive() {
		return ErrNoSession
	}

	if err := s.fetchAndStore(ctx); err != nil {
		return err
	}

	s.hub.Publish()
	observability.BroadcastsTotal.Inc()
	return nil
}

func (s *Service) fetchAndStore(ctx context.Context) error {
	coords, params := s.session.Config()

	reading, err := s.source.FetchCurrent(ctx, coords, params)
	if err != nil {
		observability.FetchesTotal.WithLabelValues("error").Inc()
		return err
	}
	observability.FetchesTotal.WithLabelValues("success").Inc()

	for _, param := range params {
		value, ok := reading.Values[param]
		if !ok {
			s.log.Warn("reading has no value for parameter", zap.String("parameter", string(param)))
			continue
		}

		obs := Observation{
			Timestamp: reading.Timestamp,
			Latitude:  coords.Latitude,
			Longitude: coords.Longitude,
			Parameter: param,
			Value:     value,
		}
		if err := s.store.Insert(ctx, obs); err != nil {
			// A lost insert is logged and the cycle keeps going.
			s.log.Error("failed to insert observation",
				zap.String("parameter", string(param)), zap.Error(err))
			continue
		}
		observability.ObservationsStored.Inc()
	}

	return nil
}
