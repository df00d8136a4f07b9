package scheduler

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/i474232898/agroclima/internal/analysis"
	"github.com/i474232898/agroclima/internal/config"
)

const (
	defaultInterval = 6 * time.Hour
	fieldTimeout    = 30 * time.Second
)

// WeeklyAnalyzer is the part of analysis.Analyzer the scheduler needs.
type WeeklyAnalyzer interface {
	AnalyzeWeeklyPattern(ctx context.Context, lat, lon float64) (*analysis.WeeklyAnalysis, error)
}

// FieldReport is the outcome of one field in one run.
type FieldReport struct {
	RunID  string
	Field  config.Field
	Report *analysis.WeeklyAnalysis
	Err    error
}

// Scheduler periodically analyzes the weekly outlook of the configured fields.
type Scheduler struct {
	scheduler *gocron.Scheduler
	analyzer  WeeklyAnalyzer
	fields    []config.Field
	interval  time.Duration
	logger    *log.Logger
}

// New creates a new Scheduler.
func New(fields []config.Field, interval time.Duration, analyzer WeeklyAnalyzer, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		analyzer:  analyzer,
		fields:    fields,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.fields) == 0 {
		s.logger.Println("scheduler: no fields configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce analyzes every field concurrently and logs alerts. Reports come
// back in field order.
func (s *Scheduler) RunOnce(ctx context.Context) []FieldReport {
	runID := uuid.NewString()
	s.logger.Printf("scheduler: run %s analyzing %d fields", runID, len(s.fields))

	reports := make([]FieldReport, len(s.fields))
	var wg sync.WaitGroup
	for i, f := range s.fields {
		wg.Add(1)
		go func() {
			defer wg.Done()

			fctx, cancel := context.WithTimeout(ctx, fieldTimeout)
			defer cancel()

			report, err := s.analyzer.AnalyzeWeeklyPattern(fctx, f.Lat, f.Lon)
			reports[i] = FieldReport{RunID: runID, Field: f, Report: report, Err: err}
		}()
	}
	wg.Wait()

	for _, r := range reports {
		s.logReport(r)
	}
	s.logger.Printf("scheduler: run %s completed", runID)
	return reports
}

func (s *Scheduler) logReport(r FieldReport) {
	if r.Err != nil {
		s.logger.Printf("ERROR: scheduler: run %s field %s: %v", r.RunID, r.Field.Name, r.Err)
		return
	}

	risky := make([]string, 0)
	for _, d := range r.Report.DailyPatterns {
		if d.CropRisk.Level == analysis.RiskHigh {
			risky = append(risky, d.Date)
		}
	}
	if len(risky) > 0 {
		s.logger.Printf("WARN: scheduler: run %s field %s: high crop risk on %s", r.RunID, r.Field.Name, strings.Join(risky, ", "))
	}
	for _, a := range r.Report.Alerts {
		s.logger.Printf("ALERT: scheduler: run %s field %s: [%s/%s] %s", r.RunID, r.Field.Name, a.Type, a.Level, a.Message)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
