package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/agroclima/internal/weather"
)

var quietLogger = log.New(io.Discard, "", 0)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// sample builds one provider forecast entry.
func sample(ts time.Time, temp, humidity, windMS float64) map[string]interface{} {
	return map[string]interface{}{
		"dt":      ts.Unix(),
		"main":    map[string]interface{}{"temp": temp, "humidity": humidity},
		"wind":    map[string]interface{}{"speed": windMS},
		"weather": []map[string]interface{}{{"id": 500, "description": "lluvia ligera"}},
	}
}

// feed builds a 3h-cadence feed starting at start; temperature encodes the sample index.
func feed(start time.Time, n int) []map[string]interface{} {
	list := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, sample(start.Add(time.Duration(i)*3*time.Hour), float64(i), 60, 2))
	}
	return list
}

func jsonServer(t *testing.T, hits *int32, payload interface{}) *httptest.Server {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string, httpClient *http.Client) *OpenWeatherClient {
	return NewOpenWeatherClient(httpClient, "test-key", Options{
		BaseURL:    baseURL,
		Location:   time.UTC,
		RetryDelay: 10 * time.Millisecond,
		Logger:     quietLogger,
	})
}

func TestFetchCurrentNormalizes(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		gotQuery = map[string]string{
			"lat": q.Get("lat"), "lon": q.Get("lon"), "appid": q.Get("appid"),
			"units": q.Get("units"), "lang": q.Get("lang"),
		}
		_, _ = io.WriteString(w, `{
			"main": {"temp": 21.456, "humidity": 63},
			"wind": {"speed": 5},
			"rain": {"1h": 0.4},
			"weather": [{"id": 801, "description": "algo de nubes"}],
			"dt": 1717416000
		}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, nil)
	fixed := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return fixed }

	got, err := client.FetchCurrent(context.Background(), -12.05, -77.04)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := weather.CurrentWeather{
		Temperature:   21.5,
		Humidity:      63,
		WindSpeed:     18.0,
		Rain:          0.4,
		Condition:     "algo de nubes",
		ConditionCode: 801,
		Timestamp:     fixed,
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	wantQuery := map[string]string{"lat": "-12.05", "lon": "-77.04", "appid": "test-key", "units": "metric", "lang": "es"}
	for k, v := range wantQuery {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestFetchCurrentDefaults(t *testing.T) {
	srv := jsonServer(t, nil, map[string]interface{}{
		"main": map[string]interface{}{"temp": 10, "humidity": 80},
	})

	got, err := newTestClient(srv.URL, nil).FetchCurrent(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.WindSpeed != 0 || got.Rain != 0 {
		t.Errorf("expected zero wind and rain, got %.1f / %.1f", got.WindSpeed, got.Rain)
	}
	if got.Condition != weather.DefaultCondition || got.ConditionCode != weather.DefaultConditionCode {
		t.Errorf("expected default condition, got %q/%d", got.Condition, got.ConditionCode)
	}
}

func TestFetchCurrentMissingHumidity(t *testing.T) {
	var hits int32
	srv := jsonServer(t, &hits, map[string]interface{}{
		"main": map[string]interface{}{"temp": 10},
	})

	_, err := newTestClient(srv.URL, nil).FetchCurrent(context.Background(), 0, 0)
	if !errors.Is(err, weather.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected 1 request, got %d", hits)
	}
}

func TestFetchCurrentUndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>not json</html>")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, nil).FetchCurrent(context.Background(), 0, 0)
	if !errors.Is(err, weather.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestFetchForecastOnePerDay(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC) // a Monday
	srv := jsonServer(t, nil, map[string]interface{}{"list": feed(start, 40)})

	got, err := newTestClient(srv.URL, nil).FetchForecast(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(got))
	}

	wantDays := []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes"}
	seen := map[string]bool{}
	for i, d := range got {
		if seen[d.Date] {
			t.Fatalf("duplicate date %s", d.Date)
		}
		seen[d.Date] = true

		wantDate := start.AddDate(0, 0, i).Format("2006-01-02")
		if d.Date != wantDate {
			t.Errorf("entry %d: date %s, want %s", i, d.Date, wantDate)
		}
		if d.Day != wantDays[i] {
			t.Errorf("entry %d: day %s, want %s", i, d.Day, wantDays[i])
		}
		// The 12:00 sample of day i sits at index i*8+4.
		if want := float64(i*8 + 4); d.Temperature != want {
			t.Errorf("entry %d: temperature %.1f, want %.1f (midday sample)", i, d.Temperature, want)
		}
		if d.WindSpeed != 7.2 {
			t.Errorf("entry %d: wind %.1f, want 7.2", i, d.WindSpeed)
		}
	}
}

func TestFetchForecastStopsAtFiveDates(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	srv := jsonServer(t, nil, map[string]interface{}{"list": feed(start, 7*8)})

	got, err := newTestClient(srv.URL, nil).FetchForecast(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(got))
	}
	if got[4].Date != "2024-06-07" {
		t.Errorf("last date %s, want 2024-06-07", got[4].Date)
	}
}

func TestFetchForecastSkipsMalformedSamples(t *testing.T) {
	day := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	list := []interface{}{
		// Non-numeric temperature: fails to decode on its own.
		map[string]interface{}{"dt": day.Add(11 * time.Hour).Unix(), "main": map[string]interface{}{"temp": "hot", "humidity": 50}},
		// Missing humidity.
		map[string]interface{}{"dt": day.Add(12 * time.Hour).Unix(), "main": map[string]interface{}{"temp": 30}},
		// Valid midday sample for the same date.
		sample(day.Add(13*time.Hour), 24.04, 55, 1),
		// Missing dt.
		map[string]interface{}{"main": map[string]interface{}{"temp": 1, "humidity": 1}},
	}
	srv := jsonServer(t, nil, map[string]interface{}{"list": list})

	got, err := newTestClient(srv.URL, nil).FetchForecast(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d: %+v", len(got), got)
	}
	if got[0].Temperature != 24.0 || got[0].Humidity != 55 || got[0].Day != "Martes" {
		t.Errorf("unexpected entry %+v", got[0])
	}
}

func TestFetchForecastRainRate(t *testing.T) {
	ts := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	s := sample(ts, 20, 70, 0)
	s["rain"] = map[string]interface{}{"3h": 3.6}
	srv := jsonServer(t, nil, map[string]interface{}{"list": []interface{}{s}})

	got, err := newTestClient(srv.URL, nil).FetchForecast(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := got[0].Rain - 1.2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("rain %.4f, want 1.2", got[0].Rain)
	}
}

func TestFetchForecastNoUsableEntries(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
	}{
		{"missing list", map[string]interface{}{"cod": "200"}},
		{"empty list", map[string]interface{}{"list": []interface{}{}}},
		{"no midday samples", map[string]interface{}{"list": []interface{}{
			sample(time.Date(2024, 6, 3, 3, 0, 0, 0, time.UTC), 10, 10, 1),
			sample(time.Date(2024, 6, 3, 21, 0, 0, 0, time.UTC), 10, 10, 1),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, nil, tt.payload)
			_, err := newTestClient(srv.URL, nil).FetchForecast(context.Background(), 0, 0)
			if !errors.Is(err, weather.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestFetchHourly(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	srv := jsonServer(t, nil, map[string]interface{}{"list": feed(start, 12)})

	got, err := newTestClient(srv.URL, nil).FetchHourly(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("expected 8 entries, got %d", len(got))
	}
	if got[0].Hour != "00:00" || got[7].Hour != "21:00" {
		t.Errorf("unexpected hour labels %s .. %s", got[0].Hour, got[7].Hour)
	}
}

func TestRetryOnTimeout(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &http.Client{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := client.FetchForecast(context.Background(), 0, 0)
	elapsed := time.Since(start)

	if !errors.Is(err, weather.ErrConnectivity) {
		t.Fatalf("expected ErrConnectivity, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if elapsed < 20*time.Millisecond {
		t.Errorf("expected retry delays between attempts, finished in %v", elapsed)
	}
}

func TestRetryOnTransportErrorThenSuccess(t *testing.T) {
	var attempts int32
	httpClient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return nil, errors.New("connection reset by peer")
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"main":{"temp":15,"humidity":40}}`)),
			Header:     make(http.Header),
		}, nil
	})}

	got, err := newTestClient("http://owm.test", httpClient).FetchCurrent(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if got.Temperature != 15 {
		t.Errorf("temperature %.1f, want 15", got.Temperature)
	}
}

func TestNoRetryOnHTTPStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError} {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(status)
		}))

		_, err := newTestClient(srv.URL, nil).FetchCurrent(context.Background(), 0, 0)
		srv.Close()

		if !errors.Is(err, weather.ErrConnectivity) {
			t.Errorf("status %d: expected ErrConnectivity, got %v", status, err)
		}
		if hits != 1 {
			t.Errorf("status %d: expected 1 attempt, got %d", status, hits)
		}
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	var attempts int32
	httpClient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, errors.New("dial tcp: connection refused")
	})}
	client := NewOpenWeatherClient(httpClient, "k", Options{
		BaseURL:    "http://owm.test",
		RetryDelay: time.Second,
		Logger:     quietLogger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchCurrent(ctx, 0, 0)
	if !errors.Is(err, weather.ErrConnectivity) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected connectivity error wrapping deadline, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	var attempts int32
	httpClient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, errors.New("dial tcp: connection refused")
	})}
	client := NewOpenWeatherClient(httpClient, "k", Options{
		BaseURL:        "http://owm.test",
		RetryDelay:     time.Millisecond,
		CircuitBreaker: true,
		Logger:         quietLogger,
	})

	// Two calls of three attempts each trip the breaker (more than five consecutive failures).
	for i := 0; i < 2; i++ {
		if _, err := client.FetchCurrent(context.Background(), 0, 0); !errors.Is(err, weather.ErrConnectivity) {
			t.Fatalf("call %d: expected ErrConnectivity, got %v", i, err)
		}
	}
	if attempts != 6 {
		t.Fatalf("expected 6 attempts before the breaker opens, got %d", attempts)
	}

	_, err := client.FetchCurrent(context.Background(), 0, 0)
	if !errors.Is(err, weather.ErrConnectivity) {
		t.Fatalf("expected ErrConnectivity from open breaker, got %v", err)
	}
	if attempts != 6 {
		t.Fatalf("open breaker should short-circuit, got %d attempts", attempts)
	}
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	var hits int32
	srv := jsonServer(t, &hits, map[string]interface{}{"main": map[string]interface{}{"temp": 1, "humidity": 2}})

	client := NewOpenWeatherClient(nil, "k", Options{
		BaseURL:           srv.URL,
		RequestsPerSecond: 0.01,
		Burst:             1,
		Logger:            quietLogger,
	})

	if _, err := client.FetchCurrent(context.Background(), 0, 0); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.FetchCurrent(ctx, 0, 0); !errors.Is(err, weather.ErrConnectivity) {
		t.Fatalf("expected ErrConnectivity while rate limited, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected the limited call to stay local, got %d hits", hits)
	}
}

func TestDayNames(t *testing.T) {
	tests := []struct {
		lang string
		day  time.Weekday
		want string
	}{
		{"es", time.Monday, "Lunes"},
		{"es", time.Sunday, "Domingo"},
		{"en", time.Wednesday, "Wednesday"},
		{"xx", time.Saturday, "Sábado"},
	}
	for _, tt := range tests {
		if got := dayNames(tt.lang)[mondayIndex(tt.day)]; got != tt.want {
			t.Errorf("dayNames(%q)[%s] = %s, want %s", tt.lang, tt.day, got, tt.want)
		}
	}
}
