package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weatherboard/server/internal/weather"
)

// PostgresStore persists observations in a single observations table.
// It satisfies the same contract as MemoryStore and is selected when
// DATABASE_URL is configured.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the observations table if it does not exist.
// There is no schema versioning.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS observations (
			id        BIGSERIAL PRIMARY KEY,
			datetime  TEXT             NOT NULL,
			latitude  TEXT             NOT NULL,
			longitude TEXT             NOT NULL,
			parameter TEXT             NOT NULL,
			value     DOUBLE PRECISION NOT NULL
		)
	`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("postgres: failed to ensure schema: %w", err)
	}
	return nil
}

// Insert persists one observation.
func (s *PostgresStore) Insert(ctx context.Context, obs weather.Observation) error {
	query := `
		INSERT INTO observations (datetime, latitude, longitude, parameter, value)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		obs.Timestamp, obs.Latitude, obs.Longitude, string(obs.Parameter), obs.Value,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert observation: %w", err)
	}

	return nil
}

// DeleteAll removes every observation.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM observations`); err != nil {
		return fmt.Errorf("postgres: failed to delete observations: %w", err)
	}
	return nil
}

// AllGroupedByParameter returns every observation ordered by timestamp
// ascending, grouped into per-parameter series.
func (s *PostgresStore) AllGroupedByParameter(ctx context.Context) ([]weather.ParameterSeries, error) {
	query := `
		SELECT datetime, latitude, longitude, parameter, value
		FROM observations
		ORDER BY datetime ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query observations: %w", err)
	}
	defer rows.Close()

	var results []weather.Observation
	for rows.Next() {
		var o weather.Observation
		var param string
		if err := rows.Scan(&o.Timestamp, &o.Latitude, &o.Longitude, &param, &o.Value); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan observation row: %w", err)
		}
		o.Parameter = weather.Parameter(param)
		results = append(results, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read observation rows: %w", err)
	}

	return groupByParameter(results), nil
}

// Health checks database connectivity.
func (s *PostgresStore) Health(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
