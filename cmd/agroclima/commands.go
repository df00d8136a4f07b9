package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/agroclima/internal/weather"
)

const commandTimeout = 30 * time.Second

// locationFlags are shared by the weather commands.
type locationFlags struct {
	lat, lon      float64
	city, country string
	output        string
}

func (f *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "Latitude in decimal degrees")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "Longitude in decimal degrees")
	cmd.Flags().StringVar(&f.city, "city", "", "City name (requires GOOGLE_GEOCODING_API_KEY)")
	cmd.Flags().StringVarP(&f.country, "country", "c", "", "Country of the city")
	cmd.Flags().StringVarP(&f.output, "output", "o", "text", "Output format (text, json)")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	cmd.MarkFlagsMutuallyExclusive("lat", "city")
}

func (f *locationFlags) coordinate(cmd *cobra.Command, a *app) (weather.Coordinate, error) {
	if f.city != "" {
		return a.places.Resolve(f.city, f.country)
	}
	if !cmd.Flags().Changed("lat") {
		return weather.Coordinate{}, fmt.Errorf("%w: --lat and --lon, or --city, are required", weather.ErrInvalidInput)
	}
	c := weather.Coordinate{Lat: f.lat, Lon: f.lon}
	return c, c.Validate()
}

// weatherCommand builds a command that resolves a location and prints the
// result of fetch.
func weatherCommand(use, short string, fetch func(ctx context.Context, a *app, c weather.Coordinate) (interface{}, error)) *cobra.Command {
	var flags locationFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(true)
			if err != nil {
				return err
			}
			coord, err := flags.coordinate(cmd, a)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			result, err := fetch(ctx, a, coord)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), flags.output, result)
		},
	}
	flags.register(cmd)
	return cmd
}

func newCurrentCmd() *cobra.Command {
	return weatherCommand("current", "Show current conditions", func(ctx context.Context, a *app, c weather.Coordinate) (interface{}, error) {
		return a.weather.FetchCurrent(ctx, c.Lat, c.Lon)
	})
}

func newForecastCmd() *cobra.Command {
	return weatherCommand("forecast", "Show the 5-day midday forecast", func(ctx context.Context, a *app, c weather.Coordinate) (interface{}, error) {
		return a.weather.FetchForecast(ctx, c.Lat, c.Lon)
	})
}

func newHourlyCmd() *cobra.Command {
	return weatherCommand("hourly", "Show the next 24 hours in 3-hour steps", func(ctx context.Context, a *app, c weather.Coordinate) (interface{}, error) {
		return a.weather.FetchHourly(ctx, c.Lat, c.Lon)
	})
}

func newWeeklyCmd() *cobra.Command {
	return weatherCommand("weekly", "Analyze the weekly outlook for crops", func(ctx context.Context, a *app, c weather.Coordinate) (interface{}, error) {
		return a.analyzer.AnalyzeWeeklyPattern(ctx, c.Lat, c.Lon)
	})
}

func newCropCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:       "crop [name] [irrigation|status|pest-risk|water-savings]",
		Short:     "Query the crop conditions dataset",
		Long:      "Without a name, lists the crops in the dataset. The view defaults to irrigation.",
		Args:      cobra.RangeArgs(0, 2),
		ValidArgs: []string{"irrigation", "status", "pest-risk", "water-savings"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(false)
			if err != nil {
				return err
			}
			result, err := cropView(a, args)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, result)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, json)")
	return cmd
}

func cropView(a *app, args []string) (interface{}, error) {
	if len(args) == 0 {
		return a.crops.Crops()
	}
	name, view := args[0], "irrigation"
	if len(args) == 2 {
		view = args[1]
	}

	switch view {
	case "irrigation":
		return a.crops.IrrigationNeeds(name)
	case "status":
		return a.crops.Status(name)
	case "pest-risk":
		return a.crops.PestRisk(name)
	case "water-savings":
		return a.crops.WaterSavings(name)
	default:
		return nil, fmt.Errorf("%w: unknown view %q", weather.ErrInvalidInput, view)
	}
}

func render(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		return writeJSON(w, v)
	case "text", "":
		return writeText(w, v)
	default:
		return fmt.Errorf("%w: unknown output format %q", weather.ErrInvalidInput, format)
	}
}
