package geo

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/agroclima/internal/weather"
)

// ErrGeocodingDisabled is returned when no geocoding API key is configured.
var ErrGeocodingDisabled = errors.New("geocoding disabled: no API key configured")

// geocoder keeps its API key in a package variable.
var keyMu sync.Mutex

// Resolver turns a place name into coordinates using the Google Geocoding API.
type Resolver struct {
	apiKey string
	logger *log.Logger
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewResolver(apiKey string, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	r := &Resolver{apiKey: apiKey, logger: logger}
	r.lookup = r.geocode
	return r
}

func (r *Resolver) Enabled() bool {
	return r != nil && r.apiKey != ""
}

// Resolve geocodes city/country. The returned coordinate is validated.
func (r *Resolver) Resolve(city, country string) (weather.Coordinate, error) {
	if !r.Enabled() {
		return weather.Coordinate{}, ErrGeocodingDisabled
	}
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" {
		return weather.Coordinate{}, fmt.Errorf("%w: city is required", weather.ErrInvalidInput)
	}

	loc, err := r.lookup(geocoder.Address{City: city, Country: country})
	if err != nil {
		r.logger.Printf("ERROR: geocoding %s, %s: %v", city, country, err)
		return weather.Coordinate{}, fmt.Errorf("%w: geocoding %s: %w", weather.ErrConnectivity, city, err)
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return weather.Coordinate{}, fmt.Errorf("%w: no location found for %s, %s", weather.ErrInvalidInput, city, country)
	}

	c := weather.Coordinate{Lat: loc.Latitude, Lon: loc.Longitude}
	if err := c.Validate(); err != nil {
		return weather.Coordinate{}, err
	}
	return c, nil
}

func (r *Resolver) geocode(addr geocoder.Address) (geocoder.Location, error) {
	keyMu.Lock()
	defer keyMu.Unlock()
	geocoder.ApiKey = r.apiKey
	return geocoder.Geocoding(addr)
}
