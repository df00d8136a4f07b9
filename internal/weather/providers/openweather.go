package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/i474232898/agroclima/internal/common"
	"github.com/i474232898/agroclima/internal/weather"
)

const (
	defaultBaseURL     = "https://api.openweathermap.org/data/2.5"
	defaultLang        = "es"
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 1 * time.Second

	forecastDays = 5
	hourlySlots  = 8 // 24h in 3h samples

	msToKmh = 3.6
)

// Options tunes an OpenWeatherClient. Zero values select the defaults.
type Options struct {
	BaseURL string
	Lang    string

	// Location is the time zone used to bucket forecast samples into calendar
	// days and to pick the midday sample. Defaults to time.Local.
	Location *time.Location

	MaxAttempts int
	RetryDelay  time.Duration

	// RequestsPerSecond enables a token-bucket limiter in front of the provider.
	RequestsPerSecond float64
	Burst             int

	CircuitBreaker bool

	Logger *log.Logger
}

// OpenWeatherClient fetches and normalizes OpenWeatherMap current and forecast data.
type OpenWeatherClient struct {
	name     string
	apiKey   string
	baseURL  string
	lang     string
	location *time.Location
	httpCfg  HTTPClientConfig
	logger   *log.Logger
	now      func() time.Time
}

var _ weather.Provider = (*OpenWeatherClient)(nil)

// NewOpenWeatherClient builds a client. A nil http.Client gets a 10s timeout
// and the default TLS-verifying transport.
func NewOpenWeatherClient(client *http.Client, apiKey string, opts Options) *OpenWeatherClient {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Lang == "" {
		opts.Lang = defaultLang
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	httpCfg := HTTPClientConfig{
		Client: client,
		Retry: RetryConfig{
			MaxAttempts: opts.MaxAttempts,
			Delay:       opts.RetryDelay,
		},
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		httpCfg.Limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.CircuitBreaker {
		httpCfg.Breaker = newCircuitBreaker("openweather")
	}

	return &OpenWeatherClient{
		name:     "openweathermap",
		apiKey:   apiKey,
		baseURL:  opts.BaseURL,
		lang:     opts.Lang,
		location: opts.Location,
		httpCfg:  httpCfg,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

func (c *OpenWeatherClient) Name() string {
	return c.name
}

// Provider payload. Pointer fields are the ones whose absence must be told
// apart from a zero value.
type owmMain struct {
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"humidity"`
}

type owmWind struct {
	Speed *float64 `json:"speed"`
}

type owmRain struct {
	OneH   *float64 `json:"1h"`
	ThreeH *float64 `json:"3h"`
}

type owmCondition struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type owmSample struct {
	Dt      *int64         `json:"dt"`
	Main    *owmMain       `json:"main"`
	Wind    *owmWind       `json:"wind"`
	Rain    *owmRain       `json:"rain"`
	Weather []owmCondition `json:"weather"`
}

type owmForecast struct {
	List []json.RawMessage `json:"list"`
}

// sampleResult is the outcome of decoding one forecast list entry. A non-nil
// skip means the entry is dropped from the batch.
type sampleResult struct {
	index  int
	sample owmSample
	skip   error
}

var (
	errMissingTimestamp = errors.New("missing dt")
	errMissingMain      = errors.New("missing main.temp or main.humidity")
)

// FetchCurrent returns the normalized current conditions at lat/lon.
func (c *OpenWeatherClient) FetchCurrent(ctx context.Context, lat, lon float64) (weather.CurrentWeather, error) {
	body, err := getWithRetry(ctx, c.httpCfg, c.logger, c.requestBuilder("weather", lat, lon))
	if err != nil {
		c.logger.Printf("ERROR: provider %s current weather failed for (%g, %g): %v", c.name, lat, lon, err)
		return weather.CurrentWeather{}, err
	}

	var payload owmSample
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.CurrentWeather{}, fmt.Errorf("%w: failed to decode current weather: %v", weather.ErrMalformedResponse, err)
	}
	if err := payload.requireMain(); err != nil {
		c.logger.Printf("ERROR: incomplete current weather payload: %v", err)
		return weather.CurrentWeather{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}

	desc, code := payload.condition()
	return weather.CurrentWeather{
		Temperature:   common.Round1(*payload.Main.Temp),
		Humidity:      int(*payload.Main.Humidity),
		WindSpeed:     payload.windKmh(),
		Rain:          payload.rain1h(),
		Condition:     desc,
		ConditionCode: code,
		Timestamp:     c.now(),
	}, nil
}

// FetchForecast returns up to five entries, one per calendar date, each from
// the first sample whose local hour is 11, 12 or 13. Entries keep the order of
// the provider feed.
func (c *OpenWeatherClient) FetchForecast(ctx context.Context, lat, lon float64) ([]weather.DailyForecast, error) {
	results, err := c.fetchSamples(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	days := dayNames(c.lang)
	seen := make(map[string]struct{}, forecastDays)
	forecast := make([]weather.DailyForecast, 0, forecastDays)

	for _, r := range results {
		if r.skip != nil {
			c.logger.Printf("WARN: skipping forecast sample %d: %v", r.index, r.skip)
			continue
		}

		ts := time.Unix(*r.sample.Dt, 0).In(c.location)
		date := ts.Format("2006-01-02")
		if !isMidday(ts) {
			continue
		}
		if _, dup := seen[date]; dup {
			continue
		}
		// A malformed sample leaves its date open for a later midday sample.
		if err := r.sample.requireMain(); err != nil {
			c.logger.Printf("WARN: skipping forecast sample %d: %v", r.index, err)
			continue
		}

		seen[date] = struct{}{}
		desc, code := r.sample.condition()
		forecast = append(forecast, weather.DailyForecast{
			Date:          date,
			Day:           days[mondayIndex(ts.Weekday())],
			Temperature:   common.Round1(*r.sample.Main.Temp),
			Humidity:      int(*r.sample.Main.Humidity),
			WindSpeed:     r.sample.windKmh(),
			Rain:          r.sample.rain3h() / 3,
			Condition:     desc,
			ConditionCode: code,
		})

		if len(forecast) >= forecastDays {
			break
		}
	}

	if len(forecast) == 0 {
		return nil, fmt.Errorf("%w: no usable daily forecast entries", weather.ErrMalformedResponse)
	}
	return forecast, nil
}

// FetchHourly returns the next 24 hours as 3-hour samples.
func (c *OpenWeatherClient) FetchHourly(ctx context.Context, lat, lon float64) ([]weather.HourlyForecast, error) {
	results, err := c.fetchSamples(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if len(results) > hourlySlots {
		results = results[:hourlySlots]
	}

	hours := make([]weather.HourlyForecast, 0, len(results))
	for _, r := range results {
		if r.skip == nil {
			r.skip = r.sample.requireMain()
		}
		if r.skip != nil {
			c.logger.Printf("WARN: skipping hourly sample %d: %v", r.index, r.skip)
			continue
		}

		desc, code := r.sample.condition()
		hours = append(hours, weather.HourlyForecast{
			Hour:          time.Unix(*r.sample.Dt, 0).In(c.location).Format("15:00"),
			Temperature:   common.Round1(*r.sample.Main.Temp),
			Humidity:      int(*r.sample.Main.Humidity),
			WindSpeed:     r.sample.windKmh(),
			Condition:     desc,
			ConditionCode: code,
		})
	}

	if len(hours) == 0 {
		return nil, fmt.Errorf("%w: no usable hourly forecast entries", weather.ErrMalformedResponse)
	}
	return hours, nil
}

// fetchSamples calls the forecast endpoint and decodes each list entry on its
// own, so one bad sample does not sink the batch.
func (c *OpenWeatherClient) fetchSamples(ctx context.Context, lat, lon float64) ([]sampleResult, error) {
	body, err := getWithRetry(ctx, c.httpCfg, c.logger, c.requestBuilder("forecast", lat, lon))
	if err != nil {
		c.logger.Printf("ERROR: provider %s forecast failed for (%g, %g): %v", c.name, lat, lon, err)
		return nil, err
	}

	var payload owmForecast
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode forecast: %v", weather.ErrMalformedResponse, err)
	}
	if len(payload.List) == 0 {
		return nil, fmt.Errorf("%w: forecast list is missing or empty", weather.ErrMalformedResponse)
	}

	results := make([]sampleResult, len(payload.List))
	for i, raw := range payload.List {
		results[i].index = i
		if err := json.Unmarshal(raw, &results[i].sample); err != nil {
			results[i].skip = err
			continue
		}
		if results[i].sample.Dt == nil {
			results[i].skip = errMissingTimestamp
		}
	}
	return results, nil
}

func (c *OpenWeatherClient) requestBuilder(endpoint string, lat, lon float64) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("appid", c.apiKey)
		values.Set("units", "metric")
		values.Set("lang", c.lang)

		u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
		}
		return req, nil
	}
}

func (s owmSample) requireMain() error {
	if s.Main == nil || s.Main.Temp == nil || s.Main.Humidity == nil {
		return errMissingMain
	}
	return nil
}

func (s owmSample) windKmh() float64 {
	if s.Wind == nil || s.Wind.Speed == nil {
		return 0
	}
	return common.Round1(*s.Wind.Speed * msToKmh)
}

func (s owmSample) rain1h() float64 {
	if s.Rain == nil || s.Rain.OneH == nil {
		return 0
	}
	return *s.Rain.OneH
}

func (s owmSample) rain3h() float64 {
	if s.Rain == nil || s.Rain.ThreeH == nil {
		return 0
	}
	return *s.Rain.ThreeH
}

func (s owmSample) condition() (string, int) {
	if len(s.Weather) == 0 {
		return weather.DefaultCondition, weather.DefaultConditionCode
	}
	return s.Weather[0].Description, s.Weather[0].ID
}

func isMidday(ts time.Time) bool {
	h := ts.Hour()
	return h >= 11 && h <= 13
}

// mondayIndex maps time.Weekday (Sunday=0) onto Monday=0 through Sunday=6.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

var weekdayNames = map[string][7]string{
	"es": {"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"},
	"en": {"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
}

func dayNames(lang string) [7]string {
	if names, ok := weekdayNames[lang]; ok {
		return names
	}
	return weekdayNames[defaultLang]
}
