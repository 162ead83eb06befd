package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/tally/internal/domain/models"
	"github.com/mamadbah2/tally/internal/service/period"
)

const defaultWorkers = 4

// TotalScanner reads the total figure of one report workbook.
type TotalScanner interface {
	ScanTotal(ctx context.Context, path string) (string, error)
}

// Service turns a set of report workbooks into a monthly calendar. Scans run
// on a bounded pool; the calendar itself is built afterwards, in input order.
// A scan abandoned on timeout keeps its slot until ScanTotal returns, so no
// more than workers workbooks are ever open at once.
type Service struct {
	scanner  TotalScanner
	resolver *period.Resolver
	workers  int
	slots    chan struct{}
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers bounds the number of workbooks scanned at once.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithFileTimeout abandons a single scan after d. Zero means no limit.
func WithFileTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// NewService wires a reporting service. A nil resolver selects one using the
// system clock.
func NewService(scanner TotalScanner, resolver *period.Resolver, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = period.NewResolver(logger.Named("period"))
	}
	s := &Service{
		scanner:  scanner,
		resolver: resolver,
		workers:  defaultWorkers,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.slots = make(chan struct{}, s.workers)
	return s
}

// BuildFromDir collects every spreadsheet under root and builds its calendar.
func (s *Service) BuildFromDir(ctx context.Context, root string) (models.Calendar, error) {
	paths, stats, err := CollectFiles(ctx, root)
	if err != nil {
		return models.Calendar{}, err
	}
	s.logger.Info("report directory walked",
		zap.String("root", root),
		zap.Int("matched", stats.Matched),
		zap.Int("failed", stats.Failed))
	return s.Build(ctx, paths)
}

// Build scans the given workbooks and builds the calendar they describe.
// Per-file problems end up in the calendar diagnostics; only a cancelled
// context fails the whole build.
func (s *Service) Build(ctx context.Context, paths []string) (models.Calendar, error) {
	files, err := s.Describe(ctx, paths)
	if err != nil {
		return models.Calendar{}, err
	}
	return s.resolver.BuildCalendar(files), nil
}

// Describe stats and scans each path, keeping input order. A path listed
// twice is kept once.
func (s *Service) Describe(ctx context.Context, paths []string) ([]models.FileInput, error) {
	paths = s.dedupe(paths)
	files := make([]models.FileInput, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		files[i] = models.FileInput{
			Path: path,
			Name: filepath.Base(path),
			Dir:  filepath.Base(filepath.Dir(path)),
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.describe(gctx, &files[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Service) describe(ctx context.Context, f *models.FileInput) {
	info, err := os.Stat(f.Path)
	if err != nil {
		f.Err = fmt.Errorf("stat: %w", err)
		return
	}
	f.ModTime = info.ModTime()

	if s.scanner == nil {
		return
	}
	total, err := s.scan(ctx, f.Path)
	if err != nil {
		s.logger.Warn("workbook scan failed", zap.String("file", f.Name), zap.Error(err))
		f.Err = err
		return
	}
	f.Total = total
	f.HasTotal = true
}

// scan runs one ScanTotal under the per-file timeout. A scan that overruns
// is abandoned and reported as context.DeadlineExceeded. The timeout starts
// once a slot is free.
func (s *Service) scan(ctx context.Context, path string) (string, error) {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type outcome struct {
		total string
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() { <-s.slots }()
		total, err := s.scanner.ScanTotal(ctx, path)
		done <- outcome{total: total, err: err}
	}()

	select {
	case out := <-done:
		return out.total, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Service) dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := filepath.Clean(p)
		if abs, err := filepath.Abs(key); err == nil {
			key = abs
		}
		if _, dup := seen[key]; dup {
			s.logger.Warn("file already in batch", zap.String("file", p))
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Summary renders a calendar as a short plain-text report suitable for chat.
func Summary(cal models.Calendar) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report %04d-%02d (%s): %d/%d days filled",
		cal.Period.Year, cal.Period.Month, cal.Period.Source, cal.FilledDays(), len(cal.Entries))
	for _, e := range cal.Entries {
		if e.Filled() {
			fmt.Fprintf(&b, "\n%s %s", e.Date, e.Total)
		}
	}
	if n := len(cal.Unattributed); n > 0 {
		fmt.Fprintf(&b, "\n%d file(s) not placed:", n)
		for _, u := range cal.Unattributed {
			fmt.Fprintf(&b, "\n- %s: %s", u.Filename, u.Reason)
		}
	}
	if len(cal.Shadowed) > 0 {
		fmt.Fprintf(&b, "\nignored duplicates: %s", strings.Join(cal.Shadowed, ", "))
	}
	return b.String()
}
