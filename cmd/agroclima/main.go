package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/i474232898/agroclima/internal/analysis"
	"github.com/i474232898/agroclima/internal/config"
	"github.com/i474232898/agroclima/internal/crops"
	"github.com/i474232898/agroclima/internal/geo"
	"github.com/i474232898/agroclima/internal/weather/providers"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "agroclima",
		Short:         "Agricultural weather service",
		Long:          "Fetches current weather and forecasts and analyzes the weekly outlook for crops",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newCurrentCmd(),
		newForecastCmd(),
		newHourlyCmd(),
		newWeeklyCmd(),
		newCropCmd(),
	)
	return rootCmd
}

// app holds the components shared by the commands.
type app struct {
	cfg      *config.AppConfig
	weather  *providers.OpenWeatherClient
	analyzer *analysis.Analyzer
	crops    *crops.Dataset
	places   *geo.Resolver
}

// loadApp reads configuration and builds the components. withWeather
// requires the provider API key.
func loadApp(withWeather bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{
		cfg:    cfg,
		crops:  crops.NewDataset(cfg.CropsCSV, nil),
		places: geo.NewResolver(cfg.GeocodingAPIKey, nil),
	}
	if !withWeather {
		return a, nil
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	a.weather = providers.NewOpenWeatherClient(httpClient, cfg.OpenWeatherAPIKey, providers.Options{
		BaseURL:           cfg.OpenWeatherBaseURL,
		Lang:              cfg.Lang,
		MaxAttempts:       cfg.MaxAttempts,
		RetryDelay:        cfg.RetryDelay,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		CircuitBreaker:    cfg.CircuitBreaker,
	})
	a.analyzer = analysis.NewAnalyzer(a.weather, nil)
	return a, nil
}
