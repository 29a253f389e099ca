package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/weatherboard/server/internal/weather"
)

// ErrFetch indicates the upstream call failed or returned a body the
// adapter could not make sense of. Callers skip the cycle; the next
// scheduled tick is the retry.
var ErrFetch = errors.New("weather fetch failed")

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Timestamp layouts Open-Meteo is known to emit. Current-conditions
// timestamps come back at minute precision without a zone designator.
var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04Z07:00",
	time.RFC3339,
}

// OpenMeteo fetches current conditions from the Open-Meteo forecast
// API. One call requests every parameter at once.
type OpenMeteo struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteo creates the adapter. baseURL overrides the public
// endpoint; pass "" for the default.
func NewOpenMeteo(client *http.Client, baseURL string) *OpenMeteo {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenMeteo{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

// FetchCurrent requests the current value of every given parameter at
// coords in a single upstream call and returns the reported timestamp
// plus one value per parameter.
func (o *OpenMeteo) FetchCurrent(ctx context.Context, coords weather.Coordinates, params []weather.Parameter) (weather.Reading, error) {
	if coords.Latitude == "" || coords.Longitude == "" {
		return weather.Reading{}, fmt.Errorf("%w: latitude and longitude are required", ErrFetch)
	}

	names := make([]string, 0, len(params))
	for _, param := range params {
		names = append(names, string(param))
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", coords.Latitude)
		values.Set("longitude", coords.Longitude)
		values.Set("timezone", "auto")
		values.Set("current", strings.Join(names, ","))

		u := fmt.Sprintf("%s?%s", o.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, o.httpCfg, o.circuit, buildRequest)
	if err != nil {
		return weather.Reading{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	// A non-2xx response is still decoded; a body without a usable
	// timestamp fails the fetch below either way.
	var payload struct {
		Current map[string]json.RawMessage `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: decoding response: %v", ErrFetch, err)
	}

	ts, err := currentTimestamp(payload.Current)
	if err != nil {
		return weather.Reading{}, err
	}

	reading := weather.Reading{
		Timestamp: ts,
		Values:    make(map[weather.Parameter]float64, len(params)),
	}
	for _, param := range params {
		raw, ok := payload.Current[string(param)]
		if !ok {
			return weather.Reading{}, fmt.Errorf("%w: response has no value for %s", ErrFetch, param)
		}
		var value float64
		if err := json.Unmarshal(raw, &value); err != nil {
			return weather.Reading{}, fmt.Errorf("%w: invalid value for %s: %v", ErrFetch, param, err)
		}
		reading.Values[param] = value
	}

	return reading, nil
}

// currentTimestamp extracts and validates the observation time. The
// raw string is returned unchanged so stored keys match what the
// upstream reported.
func currentTimestamp(current map[string]json.RawMessage) (string, error) {
	raw, ok := current["time"]
	if !ok {
		return "", fmt.Errorf("%w: response has no current timestamp", ErrFetch)
	}

	var ts string
	if err := json.Unmarshal(raw, &ts); err != nil {
		return "", fmt.Errorf("%w: invalid current timestamp: %v", ErrFetch, err)
	}

	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, ts); err == nil {
			return ts, nil
		}
	}
	return "", fmt.Errorf("%w: unparseable current timestamp %q", ErrFetch, ts)
}
