package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/i474232898/agroclima/internal/common"
	"github.com/i474232898/agroclima/internal/weather"
)

var errNonFinite = errors.New("non-numeric weather value")

// Analyzer builds weekly agricultural reports from the provider forecast.
// It holds no per-request state and is safe for concurrent use.
type Analyzer struct {
	source weather.ForecastSource
	logger *log.Logger
}

// NewAnalyzer creates an Analyzer reading forecasts from source.
func NewAnalyzer(source weather.ForecastSource, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.Default()
	}
	return &Analyzer{
		source: source,
		logger: logger,
	}
}

// AnalyzeWeeklyPattern fetches the forecast for lat/lon and returns the
// weekly report. Failures carry one of the weather.Err* kinds.
func (a *Analyzer) AnalyzeWeeklyPattern(ctx context.Context, lat, lon float64) (report *WeeklyAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("ERROR: weekly analysis panicked for (%g, %g): %v", lat, lon, r)
			report, err = nil, fmt.Errorf("%w: %v", weather.ErrAnalysis, r)
		}
	}()

	if err := (weather.Coordinate{Lat: lat, Lon: lon}).Validate(); err != nil {
		return nil, err
	}

	days, err := a.source.FetchForecast(ctx, lat, lon)
	if err != nil {
		a.logger.Printf("ERROR: weekly analysis for (%g, %g): %v", lat, lon, err)
		if isKnown(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", weather.ErrAnalysis, err)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: forecast returned no days", weather.ErrInsufficientData)
	}

	return a.Analyze(days)
}

// dayResult is the outcome of evaluating one forecast day. A non-nil skip
// drops the day from every series.
type dayResult struct {
	pattern DailyPattern
	temp    float64
	hum     float64
	wind    float64
	skip    error
}

func evaluateDay(d weather.DailyForecast) dayResult {
	temp, hum, wind := d.Temperature, float64(d.Humidity), d.WindSpeed
	if !common.IsFinite(temp) || !common.IsFinite(wind) {
		return dayResult{skip: fmt.Errorf("%w on %s (temperature=%v, wind=%v)", errNonFinite, d.Date, temp, wind)}
	}

	return dayResult{
		pattern: DailyPattern{
			Day:  d.Day,
			Date: d.Date,
			Conditions: Conditions{
				Temperature: Measurement{Value: temp, Category: CategorizeTemperature(temp)},
				Humidity:    Measurement{Value: hum, Category: CategorizeHumidity(hum)},
				Wind:        Measurement{Value: wind, Category: CategorizeWind(wind)},
			},
			CropRisk: AssessCropRisk(temp, hum, wind),
		},
		temp: temp,
		hum:  hum,
		wind: wind,
	}
}

// Analyze builds the report from an already fetched forecast, in the order given.
func (a *Analyzer) Analyze(days []weather.DailyForecast) (*WeeklyAnalysis, error) {
	report := &WeeklyAnalysis{
		DailyPatterns:   make([]DailyPattern, 0, len(days)),
		Recommendations: make([]Recommendation, 0),
		Alerts:          make([]Alert, 0),
	}

	temps := make([]float64, 0, len(days))
	hums := make([]float64, 0, len(days))
	winds := make([]float64, 0, len(days))

	for _, d := range days {
		r := evaluateDay(d)
		if r.skip != nil {
			a.logger.Printf("WARN: skipping forecast day: %v", r.skip)
			continue
		}
		report.DailyPatterns = append(report.DailyPatterns, r.pattern)
		temps = append(temps, r.temp)
		hums = append(hums, r.hum)
		winds = append(winds, r.wind)
	}

	if len(report.DailyPatterns) == 0 {
		return nil, fmt.Errorf("%w: none of %d forecast days could be processed", weather.ErrInsufficientData, len(days))
	}

	tempTrend := EstimateTrend(temps)
	humTrend := EstimateTrend(hums)

	report.Recommendations = recommendations(tempTrend)
	report.Alerts = alerts(hums, winds)
	report.Summary = Summary{
		AvgTemperature: common.Round1(common.Mean(temps)),
		AvgHumidity:    common.Round1(common.Mean(hums)),
		AvgWind:        common.Round1(common.Mean(winds)),
		Trends: Trends{
			Temperature: tempTrend,
			Humidity:    humTrend,
		},
	}

	return report, nil
}

func recommendations(tempTrend TrendEstimate) []Recommendation {
	recs := make([]Recommendation, 0, 1)
	if tempTrend.Slope > irrigationSlope {
		recs = append(recs, Recommendation{
			Type:    "irrigation",
			Message: "Increase irrigation frequency: temperatures are trending upward",
		})
	}
	return recs
}

// alerts scans the whole week, independently of the per-day risk scores.
func alerts(hums, winds []float64) []Alert {
	out := make([]Alert, 0, 2)
	if anyAbove(hums, fungalAlertPct) {
		out = append(out, Alert{
			Type:    "fungal",
			Level:   AlertPrecaution,
			Message: "Risk of fungal growth due to high humidity",
		})
	}
	if anyAbove(winds, windAlertKmh) {
		out = append(out, Alert{
			Type:    "wind",
			Level:   AlertWarning,
			Message: "Strong winds may damage crops",
		})
	}
	return out
}

func anyAbove(values []float64, limit float64) bool {
	for _, v := range values {
		if v > limit {
			return true
		}
	}
	return false
}

func isKnown(err error) bool {
	for _, kind := range []error{
		weather.ErrInvalidInput,
		weather.ErrConnectivity,
		weather.ErrMalformedResponse,
		weather.ErrInsufficientData,
		weather.ErrAnalysis,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
