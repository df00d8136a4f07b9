package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/agroclima/internal/weather"
)

// RetryConfig controls the fixed-delay retry loop.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
// Limiter and Breaker are optional.
type HTTPClientConfig struct {
	Client  *http.Client
	Retry   RetryConfig
	Limiter *rate.Limiter
	Breaker *gobreaker.CircuitBreaker
}

var (
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid retry configuration")
)

// upstreamResponse is what a single attempt hands back through the breaker.
type upstreamResponse struct {
	status int
	body   []byte
}

// getWithRetry executes the request built by buildRequest up to MaxAttempts
// times. Transport failures and timeouts are retried after a fixed delay; a
// non-2xx status ends the loop immediately. Every failure is reported as
// weather.ErrConnectivity.
func getWithRetry(
	ctx context.Context,
	cfg HTTPClientConfig,
	logger *log.Logger,
	buildRequest func(ctx context.Context) (*http.Request, error),
) ([]byte, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Retry.MaxAttempts < 1 || cfg.Retry.Delay < 0 {
		return nil, errInvalidConfig
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.Retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", weather.ErrConnectivity, err)
		}

		if cfg.Limiter != nil {
			if err := cfg.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: rate limit wait canceled: %w", weather.ErrConnectivity, err)
			}
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := execute(cfg, req)
		if err == nil {
			if resp.status < 200 || resp.status >= 300 {
				return nil, fmt.Errorf("%w: upstream returned status %d", weather.ErrConnectivity, resp.status)
			}
			return resp.body, nil
		}

		// Open circuit: fail fast without further attempts.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open: %v", weather.ErrConnectivity, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", weather.ErrConnectivity, ctxErr)
		}

		if isTimeout(err) {
			logger.Printf("WARN: timeout on attempt %d of %d: %v", attempt, cfg.Retry.MaxAttempts, err)
			lastErr = fmt.Errorf("timeout connecting to weather service: %w", err)
		} else {
			logger.Printf("ERROR: request failed (attempt %d of %d): %v", attempt, cfg.Retry.MaxAttempts, err)
			lastErr = err
		}

		if attempt == cfg.Retry.MaxAttempts {
			break
		}

		timer := time.NewTimer(cfg.Retry.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", weather.ErrConnectivity, ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("%w: after %d attempts: %v", weather.ErrConnectivity, cfg.Retry.MaxAttempts, lastErr)
}

// execute performs one attempt, routed through the circuit breaker when one is configured.
// Only transport failures count against the breaker; status codes are judged by the caller.
func execute(cfg HTTPClientConfig, req *http.Request) (upstreamResponse, error) {
	do := func() (interface{}, error) {
		resp, err := cfg.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return upstreamResponse{status: resp.StatusCode, body: body}, nil
	}

	var (
		result interface{}
		err    error
	)
	if cfg.Breaker != nil {
		result, err = cfg.Breaker.Execute(do)
	} else {
		result, err = do()
	}
	if err != nil {
		return upstreamResponse{}, err
	}

	resp, ok := result.(upstreamResponse)
	if !ok {
		return upstreamResponse{}, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}
