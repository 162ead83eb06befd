package period

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/domain/models"
)

// Resolver picks one reporting period for a batch of files and builds the
// calendar for it. It holds no state between calls.
type Resolver struct {
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the clock used when no file carries a usable date.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver constructs a resolver.
func NewResolver(logger *zap.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type periodStage struct {
	source models.PeriodSource
	signal func(models.FileInput) models.DateSignal
}

// periodStages run in order; a later stage is consulted only when every
// earlier one produced no usable (year, month).
var periodStages = []periodStage{
	{
		source: models.PeriodFromFilename,
		signal: func(f models.FileInput) models.DateSignal { return ExtractYearMonth(f.Name) },
	},
	{
		source: models.PeriodFromDirectory,
		signal: func(f models.FileInput) models.DateSignal { return DirectoryYearMonth(f.Dir) },
	},
	{
		source: models.PeriodFromModTime,
		signal: func(f models.FileInput) models.DateSignal {
			if f.ModTime.IsZero() {
				return models.DateSignal{}
			}
			return models.DateSignal{Year: f.ModTime.Year(), Month: int(f.ModTime.Month())}
		},
	},
}

// ResolvePeriod returns the (year, month) most files agree on. Ties go to the
// pair seen first in input order. An empty batch falls back to the clock.
func (r *Resolver) ResolvePeriod(files []models.FileInput) models.Period {
	files = describeAll(files)
	for _, stage := range periodStages {
		if p, ok := vote(files, stage.signal); ok {
			p.Source = stage.source
			r.logger.Debug("period resolved",
				zap.String("source", string(p.Source)),
				zap.Int("year", p.Year),
				zap.Int("month", p.Month),
				zap.Int("votes", p.Votes))
			return p
		}
	}

	now := r.now()
	r.logger.Debug("no dated files, using current month", zap.Time("now", now))
	return models.Period{Year: now.Year(), Month: int(now.Month()), Source: models.PeriodFromClock}
}

type yearMonth struct{ year, month int }

func vote(files []models.FileInput, signal func(models.FileInput) models.DateSignal) (models.Period, bool) {
	counts := make(map[yearMonth]int)
	var order []yearMonth
	for _, f := range files {
		sig := signal(f)
		if !sig.HasYearMonth() || sig.Month > 12 {
			continue
		}
		key := yearMonth{sig.Year, sig.Month}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	var best yearMonth
	bestCount := 0
	for _, key := range order {
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	if bestCount == 0 {
		return models.Period{}, false
	}
	return models.Period{Year: best.year, Month: best.month, Votes: bestCount}, true
}

// describeAll fills Name and Dir from Path where the caller left them empty.
func describeAll(files []models.FileInput) []models.FileInput {
	out := make([]models.FileInput, len(files))
	for i, f := range files {
		if f.Path != "" {
			if f.Name == "" {
				f.Name = filepath.Base(f.Path)
			}
			if f.Dir == "" {
				f.Dir = filepath.Base(filepath.Dir(f.Path))
			}
		}
		out[i] = f
	}
	return out
}
