package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/agroclima/internal/analysis"
	"github.com/i474232898/agroclima/internal/crops"
	"github.com/i474232898/agroclima/internal/geo"
	"github.com/i474232898/agroclima/internal/weather"
)

var validate = validator.New()

// WeeklyAnalyzer produces the weekly agricultural report for a coordinate.
type WeeklyAnalyzer interface {
	AnalyzeWeeklyPattern(ctx context.Context, lat, lon float64) (*analysis.WeeklyAnalysis, error)
}

// CropSource answers questions about the crop-conditions dataset.
type CropSource interface {
	Crops() ([]string, error)
	IrrigationNeeds(crop string) ([]crops.IrrigationNeed, error)
	Status(crop string) (*crops.Status, error)
	PestRisk(crop string) (*crops.PestRisk, error)
	WaterSavings(crop string) (*crops.WaterSavings, error)
}

// PlaceResolver turns a city/country pair into a coordinate.
type PlaceResolver interface {
	Resolve(city, country string) (weather.Coordinate, error)
}

// Deps are the collaborators behind the API routes. Places may be nil, in
// which case only lat/lon queries are accepted.
type Deps struct {
	Weather  weather.Provider
	Analyzer WeeklyAnalyzer
	Crops    CropSource
	Places   PlaceResolver
	Logger   *log.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	h := &handlers{deps}

	v1 := app.Group("/api/v1")

	w := v1.Group("/weather")
	w.Get("/current", h.current)
	w.Get("/forecast", h.forecast)
	w.Get("/hourly", h.hourly)
	w.Get("/analysis/weekly", h.weekly)

	c := v1.Group("/crops")
	c.Get("/", h.cropNames)
	c.Get("/:crop/irrigation", h.cropIrrigation)
	c.Get("/:crop/status", h.cropStatus)
	c.Get("/:crop/pest-risk", h.cropPestRisk)
	c.Get("/:crop/water-savings", h.cropWaterSavings)
}

type handlers struct {
	Deps
}

func (h *handlers) current(c *fiber.Ctx) error {
	coord, err := h.coordinate(c)
	if err != nil {
		return h.fail(c, err)
	}
	cw, err := h.Weather.FetchCurrent(c.UserContext(), coord.Lat, coord.Lon)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"location": coord, "current": cw})
}

func (h *handlers) forecast(c *fiber.Ctx) error {
	coord, err := h.coordinate(c)
	if err != nil {
		return h.fail(c, err)
	}
	days, err := h.Weather.FetchForecast(c.UserContext(), coord.Lat, coord.Lon)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"location": coord, "forecast": days})
}

func (h *handlers) hourly(c *fiber.Ctx) error {
	coord, err := h.coordinate(c)
	if err != nil {
		return h.fail(c, err)
	}
	hours, err := h.Weather.FetchHourly(c.UserContext(), coord.Lat, coord.Lon)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"location": coord, "hourly": hours})
}

func (h *handlers) weekly(c *fiber.Ctx) error {
	coord, err := h.coordinate(c)
	if err != nil {
		return h.fail(c, err)
	}
	report, err := h.Analyzer.AnalyzeWeeklyPattern(c.UserContext(), coord.Lat, coord.Lon)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(report)
}

func (h *handlers) cropNames(c *fiber.Ctx) error {
	names, err := h.Crops.Crops()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"crops": names})
}

func (h *handlers) cropIrrigation(c *fiber.Ctx) error {
	needs, err := h.Crops.IrrigationNeeds(c.Params("crop"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(needs)
}

func (h *handlers) cropStatus(c *fiber.Ctx) error {
	st, err := h.Crops.Status(c.Params("crop"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}

func (h *handlers) cropPestRisk(c *fiber.Ctx) error {
	risk, err := h.Crops.PestRisk(c.Params("crop"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(risk)
}

func (h *handlers) cropWaterSavings(c *fiber.Ctx) error {
	ws, err := h.Crops.WaterSavings(c.Params("crop"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(ws)
}

// placeQuery holds query parameters for identifying a location by name.
type placeQuery struct {
	City    string `validate:"required"`
	Country string
}

// coordinate reads lat/lon from the query, falling back to city/country
// through the geocoder.
func (h *handlers) coordinate(c *fiber.Ctx) (weather.Coordinate, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr != "" || lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return weather.Coordinate{}, fmt.Errorf("%w: invalid lat %q", weather.ErrInvalidInput, latStr)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return weather.Coordinate{}, fmt.Errorf("%w: invalid lon %q", weather.ErrInvalidInput, lonStr)
		}
		coord := weather.Coordinate{Lat: lat, Lon: lon}
		return coord, coord.Validate()
	}

	q := placeQuery{City: c.Query("city"), Country: c.Query("country")}
	if err := validate.Struct(q); err != nil {
		return weather.Coordinate{}, fmt.Errorf("%w: lat and lon, or city, are required", weather.ErrInvalidInput)
	}
	if h.Places == nil {
		return weather.Coordinate{}, geo.ErrGeocodingDisabled
	}
	return h.Places.Resolve(q.City, q.Country)
}

func (h *handlers) fail(c *fiber.Ctx, err error) error {
	code, msg := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		h.Logger.Printf("ERROR: %s %s: %v", c.Method(), c.Path(), err)
	}
	return fiber.NewError(code, msg)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, weather.ErrInvalidInput):
		return fiber.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, geo.ErrGeocodingDisabled):
		return fiber.StatusNotImplemented, err.Error()
	case errors.Is(err, weather.ErrInsufficientData),
		errors.Is(err, crops.ErrCropNotFound),
		errors.Is(err, crops.ErrDatasetUnavailable):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, weather.ErrConnectivity):
		return fiber.StatusServiceUnavailable, "weather service unavailable"
	case errors.Is(err, weather.ErrMalformedResponse):
		return fiber.StatusBadGateway, "weather service returned an unexpected response"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
