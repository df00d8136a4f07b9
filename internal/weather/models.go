package weather

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultConditionCode is the provider code for "clear sky", used when a
// payload carries no weather conditions.
const DefaultConditionCode = 800

// DefaultCondition is the description used when a payload carries no weather conditions.
const DefaultCondition = "unknown"

var validate = validator.New()

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Validate reports ErrInvalidInput when the coordinate is out of range.
func (c Coordinate) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: coordinates (%g, %g) out of range", ErrInvalidInput, c.Lat, c.Lon)
	}
	return nil
}

// CurrentWeather is the normalized view of the provider's current conditions.
type CurrentWeather struct {
	Temperature   float64   `json:"temperature"` // °C, 1 decimal
	Humidity      int       `json:"humidity"`    // %
	WindSpeed     float64   `json:"wind"`        // km/h, 1 decimal
	Rain          float64   `json:"rain"`        // mm in the last hour
	Condition     string    `json:"condition"`
	ConditionCode int       `json:"conditionCode"`
	Timestamp     time.Time `json:"timestamp"`
}

// DailyForecast is one normalized per-calendar-day entry, taken from the
// provider sample closest to local midday.
type DailyForecast struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	Day           string  `json:"day"`
	Temperature   float64 `json:"temperature"`
	Humidity      int     `json:"humidity"`
	WindSpeed     float64 `json:"wind"`
	Rain          float64 `json:"rain"` // approximate hourly rate from the 3h total
	Condition     string  `json:"condition"`
	ConditionCode int     `json:"conditionCode"`
}

// HourlyForecast is one 3-hour provider sample of the next 24 hours.
type HourlyForecast struct {
	Hour          string  `json:"hour"` // HH:00
	Temperature   float64 `json:"temperature"`
	Humidity      int     `json:"humidity"`
	WindSpeed     float64 `json:"wind"`
	Condition     string  `json:"condition"`
	ConditionCode int     `json:"conditionCode"`
}
