package weather

import "errors"

// Error kinds surfaced by the fetch and analysis operations. Callers match
// them with errors.Is; the wrapped message carries the detail.
var (
	// ErrInvalidInput is returned for out-of-range coordinates. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConnectivity is returned when the provider could not be reached after
	// all attempts, or answered with a non-2xx status.
	ErrConnectivity = errors.New("weather service unavailable")

	// ErrMalformedResponse is returned when the provider payload lacks required
	// fields across the whole batch.
	ErrMalformedResponse = errors.New("malformed weather response")

	// ErrInsufficientData is returned when a valid response leaves zero usable records.
	ErrInsufficientData = errors.New("insufficient weather data")

	// ErrAnalysis wraps unexpected failures while computing derived metrics.
	ErrAnalysis = errors.New("weather analysis failed")
)
