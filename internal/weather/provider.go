package weather

import "context"

// CurrentSource fetches current conditions for a coordinate.
type CurrentSource interface {
	FetchCurrent(ctx context.Context, lat, lon float64) (CurrentWeather, error)
}

// ForecastSource fetches the per-day forecast for a coordinate.
type ForecastSource interface {
	FetchForecast(ctx context.Context, lat, lon float64) ([]DailyForecast, error)
}

// HourlySource fetches the next 24 hours in provider resolution.
type HourlySource interface {
	FetchHourly(ctx context.Context, lat, lon float64) ([]HourlyForecast, error)
}

// Provider is the full set of operations exposed by the upstream client.
type Provider interface {
	CurrentSource
	ForecastSource
	HourlySource
}
