package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/config"
	"github.com/mamadbah2/tally/internal/domain/models"
	"github.com/mamadbah2/tally/internal/repository/sheets"
	"github.com/mamadbah2/tally/internal/repository/workbook"
	"github.com/mamadbah2/tally/internal/service/reporting"
)

const runTimeout = 5 * time.Minute

// CalendarBuilder builds a monthly calendar from a report directory.
type CalendarBuilder interface {
	BuildFromDir(ctx context.Context, root string) (models.Calendar, error)
}

// ReportArchive stores finished calendars.
type ReportArchive interface {
	SaveMonthlyReport(ctx context.Context, report *models.MonthlyReport) error
}

// SheetWriter overwrites a spreadsheet tab with rows.
type SheetWriter interface {
	ReplaceRows(ctx context.Context, sheet string, rows [][]interface{}) error
}

// Notifier delivers a plain-text report.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Sinks are the optional destinations of a run. Nil members are skipped.
type Sinks struct {
	Archive  ReportArchive
	Sheets   SheetWriter
	Notifier Notifier
}

// Scheduler rebuilds the monthly totals calendar on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	builder CalendarBuilder
	sinks   Sinks
	cfg     config.ReportingConfig
	logger  *zap.Logger
}

// NewScheduler creates a new scheduler instance running in the configured time zone.
func NewScheduler(cfg config.ReportingConfig, builder CalendarBuilder, sinks Sinks, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(cfg.Location())),
		builder: builder,
		sinks:   sinks,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the report job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runScheduled); err != nil {
		return fmt.Errorf("schedule monthly report %q: %w", s.cfg.CronSchedule, err)
	}
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule), zap.String("dir", s.cfg.Dir))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("monthly report run failed", zap.Error(err))
	}
}

// RunOnce builds the calendar for the report directory, writes it as a
// workbook under the output directory and hands it to every configured sink.
// Sink failures are collected; the report is returned whenever it was built.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.MonthlyReport, error) {
	cal, err := s.builder.BuildFromDir(ctx, s.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("build calendar: %w", err)
	}
	report := &models.MonthlyReport{
		ID:        uuid.NewString(),
		SourceDir: s.cfg.Dir,
		Calendar:  cal,
		CreatedAt: time.Now().UTC(),
	}

	var errs []error
	if path, err := s.writeWorkbook(cal); err != nil {
		errs = append(errs, err)
	} else {
		s.logger.Info("calendar workbook written", zap.String("path", path), zap.Int("filled", cal.FilledDays()))
	}
	if s.sinks.Sheets != nil {
		if err := s.sinks.Sheets.ReplaceRows(ctx, sheets.CalendarSheet(cal.Period), sheets.CalendarRows(cal)); err != nil {
			errs = append(errs, fmt.Errorf("write calendar rows: %w", err))
		}
	}
	if s.sinks.Archive != nil {
		if err := s.sinks.Archive.SaveMonthlyReport(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("archive report: %w", err))
		}
	}
	if s.sinks.Notifier != nil {
		if err := s.sinks.Notifier.Notify(ctx, reporting.Summary(cal)); err != nil {
			errs = append(errs, fmt.Errorf("notify: %w", err))
		}
	}
	return report, errors.Join(errs...)
}

// WorkbookName is the file a calendar for period is written to.
func WorkbookName(p models.Period) string {
	return fmt.Sprintf("totals_%04d-%02d.xlsx", p.Year, p.Month)
}

func (s *Scheduler) writeWorkbook(cal models.Calendar) (string, error) {
	data, err := workbook.ExportCalendar(cal)
	if err != nil {
		return "", fmt.Errorf("export calendar: %w", err)
	}
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.cfg.OutputDir, WorkbookName(cal.Period))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
