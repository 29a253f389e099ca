package httpapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/kelvins/geocoder"

	"github.com/weatherboard/server/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, geocoderKey string) {
	app.Get("/weather", func(c *fiber.Ctx) error {
		coords, err := parseCoordinatesQuery(c)
		if err != nil {
			// Contract: missing coordinates answer 500 with this exact
			// message, whatever the session state.
			return fiber.NewError(fiber.StatusInternalServerError, weather.ErrMissingCoordinates.Error())
		}

		series, err := service.Query(c.Context(), coords)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}
		if series == nil {
			series = []weather.ParameterSeries{}
		}

		return c.JSON(series)
	})

	v1 := app.Group("/api/v1")

	// Address lookup for the settings form: resolves city/country to
	// the coordinates /weather expects. Purely a client convenience.
	v1.Get("/geocode", func(c *fiber.Ctx) error {
		if geocoderKey == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "geocoding is not configured")
		}

		var q geocodeQuery
		q.City = c.Query("city")
		q.Country = c.Query("country")
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		geocoder.ApiKey = geocoderKey
		loc, err := geocoder.Geocoding(geocoder.Address{City: q.City, Country: q.Country})
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to resolve location")
		}

		return c.JSON(fiber.Map{
			"latitude":  loc.Latitude,
			"longitude": loc.Longitude,
		})
	})
}

// coordinatesQuery holds the query parameters identifying a location.
type coordinatesQuery struct {
	Latitude  string `validate:"required"`
	Longitude string `validate:"required"`
}

func parseCoordinatesQuery(c *fiber.Ctx) (weather.Coordinates, error) {
	var q coordinatesQuery
	q.Latitude = c.Query("latitude")
	q.Longitude = c.Query("longitude")

	if err := validate.Struct(q); err != nil {
		return weather.Coordinates{}, err
	}

	return weather.Coordinates{Latitude: q.Latitude, Longitude: q.Longitude}, nil
}

// geocodeQuery holds query parameters for the geocode endpoint.
type geocodeQuery struct {
	City    string `validate:"required"`
	Country string `validate:"required"`
}
