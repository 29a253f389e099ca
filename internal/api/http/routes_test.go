package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/weatherboard/server/internal/broadcast"
	"github.com/weatherboard/server/internal/session"
	"github.com/weatherboard/server/internal/store"
	"github.com/weatherboard/server/internal/weather"
)

type stubSource struct{}

func (stubSource) FetchCurrent(_ context.Context, _ weather.Coordinates, params []weather.Parameter) (weather.Reading, error) {
	r := weather.Reading{
		Timestamp: "2024-01-01T00:00",
		Values:    make(map[weather.Parameter]float64, len(params)),
	}
	for i, p := range params {
		r.Values[p] = float64(i)
	}
	return r, nil
}

// newTestApp builds a fiber app with the same centralized error
// handler the server uses, so error bodies match production.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	svc := weather.NewService(store.NewMemoryStore(), stubSource{}, session.New(), broadcast.New(), zap.NewNop())
	RegisterRoutes(app, svc, "")
	return app
}

func TestWeatherRequiresCoordinates(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{
		"/weather",
		"/weather?latitude=55.3959",
		"/weather?longitude=10.3883",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("%s: expected status %d, got %d", target, http.StatusInternalServerError, resp.StatusCode)
		}

		body, _ := io.ReadAll(resp.Body)
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("%s: invalid error body %q: %v", target, body, err)
		}
		if payload.Error != "Latitude and longitude are required" {
			t.Fatalf("%s: unexpected error message %q", target, payload.Error)
		}
	}
}

func TestWeatherFirstCallReturnsFullDataset(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/weather?latitude=55.3959&longitude=10.3883", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var series []struct {
		Param   string `json:"param"`
		Dataset []struct {
			Key   string  `json:"key"`
			Value float64 `json:"value"`
		} `json:"dataset"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &series); err != nil {
		t.Fatalf("invalid response body %q: %v", body, err)
	}

	if len(series) != 4 {
		t.Fatalf("expected 4 series, got %d", len(series))
	}
	for _, ps := range series {
		if !weather.Parameter(ps.Param).Valid() {
			t.Fatalf("unexpected parameter %q", ps.Param)
		}
		if len(ps.Dataset) != 1 {
			t.Fatalf("expected one datapoint for %s, got %d", ps.Param, len(ps.Dataset))
		}
		if ps.Dataset[0].Key != "2024-01-01T00:00" {
			t.Fatalf("unexpected datapoint key %q", ps.Dataset[0].Key)
		}
	}
}

// TestWeatherSecondCallIgnoresCoordinates: an active session serves
// the stored dataset whatever location the request names.
func TestWeatherSecondCallIgnoresCoordinates(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/weather?latitude=55.3959&longitude=10.3883", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/weather?latitude=0&longitude=0", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var series []struct {
		Param   string          `json:"param"`
		Dataset json.RawMessage `json:"dataset"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &series); err != nil {
		t.Fatalf("invalid response body %q: %v", body, err)
	}
	if len(series) != 4 {
		t.Fatalf("expected the active session's 4 series, got %d", len(series))
	}
}

func TestGeocodeUnconfigured(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/geocode?city=Odense&country=DK", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, resp.StatusCode)
	}
}
