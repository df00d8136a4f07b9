package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/i474232898/agroclima/internal/analysis"
	"github.com/i474232898/agroclima/internal/crops"
	"github.com/i474232898/agroclima/internal/weather"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeText(w io.Writer, v interface{}) error {
	switch r := v.(type) {
	case weather.CurrentWeather:
		fmt.Fprintf(w, "Temperature: %.1f°C\n", r.Temperature)
		fmt.Fprintf(w, "Humidity:    %d%%\n", r.Humidity)
		fmt.Fprintf(w, "Wind:        %.1f km/h\n", r.WindSpeed)
		fmt.Fprintf(w, "Rain (1h):   %.1f mm\n", r.Rain)
		fmt.Fprintf(w, "Conditions:  %s (%d)\n", r.Condition, r.ConditionCode)
		fmt.Fprintf(w, "Updated:     %s\n", r.Timestamp.Format("2006-01-02 15:04:05"))
	case []weather.DailyForecast:
		for _, d := range r {
			fmt.Fprintf(w, "%-10s %s  %5.1f°C  %3d%%  %5.1f km/h  %4.1f mm/h  %s\n",
				d.Day, d.Date, d.Temperature, d.Humidity, d.WindSpeed, d.Rain, d.Condition)
		}
	case []weather.HourlyForecast:
		for _, h := range r {
			fmt.Fprintf(w, "%s  %5.1f°C  %3d%%  %5.1f km/h  %s\n",
				h.Hour, h.Temperature, h.Humidity, h.WindSpeed, h.Condition)
		}
	case *analysis.WeeklyAnalysis:
		writeWeekly(w, r)
	case []string:
		for _, name := range r {
			fmt.Fprintln(w, name)
		}
	case []crops.IrrigationNeed:
		for _, n := range r {
			fmt.Fprintf(w, "%-10s %6.1f\n", n.Day, n.Need)
		}
	case *crops.Status:
		fmt.Fprintf(w, "Records: %d\n", r.Total)
		for status, n := range r.Counts {
			fmt.Fprintf(w, "  %s: %d\n", status, n)
		}
		for _, rec := range r.Weekly {
			fmt.Fprintf(w, "%-10s %-10s insects=%g fungi=%g bacteria=%g virus=%g weeds=%g\n",
				rec.Day, rec.Status, rec.Risks.Insects, rec.Risks.Fungi, rec.Risks.Bacteria, rec.Risks.Virus, rec.Risks.Weeds)
		}
	case *crops.PestRisk:
		fmt.Fprintf(w, "Level: %s\n", r.Level)
		fmt.Fprintf(w, "insects=%d fungi=%d bacteria=%d virus=%d weeds=%d\n",
			r.Risks.Insects, r.Risks.Fungi, r.Risks.Bacteria, r.Risks.Virus, r.Risks.Weeds)
	case *crops.WaterSavings:
		for _, d := range r.Daily {
			fmt.Fprintf(w, "%-10s %5.1f%%\n", d.Day, d.Saving)
		}
		fmt.Fprintf(w, "Average:   %5.1f%%\n", r.Average)
	default:
		return writeJSON(w, v)
	}
	return nil
}

func writeWeekly(w io.Writer, r *analysis.WeeklyAnalysis) {
	for _, d := range r.DailyPatterns {
		c := d.Conditions
		fmt.Fprintf(w, "%-10s %s  %5.1f°C (%s)  %3.0f%% (%s)  %5.1f km/h (%s)  risk %s",
			d.Day, d.Date,
			c.Temperature.Value, c.Temperature.Category,
			c.Humidity.Value, c.Humidity.Category,
			c.Wind.Value, c.Wind.Category,
			d.CropRisk.Level)
		if len(d.CropRisk.Factors) > 0 {
			fmt.Fprintf(w, ": %s", strings.Join(d.CropRisk.Factors, ", "))
		}
		fmt.Fprintln(w)
	}

	s := r.Summary
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Average: %.1f°C, %.1f%%, %.1f km/h\n", s.AvgTemperature, s.AvgHumidity, s.AvgWind)
	fmt.Fprintf(w, "Trends:  temperature %s (%+.2f/day), humidity %s (%+.2f/day)\n",
		s.Trends.Temperature.Direction, s.Trends.Temperature.Slope,
		s.Trends.Humidity.Direction, s.Trends.Humidity.Slope)

	for _, a := range r.Alerts {
		fmt.Fprintf(w, "ALERT [%s/%s] %s\n", a.Type, a.Level, a.Message)
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(w, "TIP   [%s] %s\n", rec.Type, rec.Message)
	}
}
