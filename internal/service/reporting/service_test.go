package reporting_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mamadbah2/tally/internal/service/period"
	"github.com/mamadbah2/tally/internal/service/reporting"
)

type fakeScanner struct {
	mu     sync.Mutex
	totals map[string]string
	delay  map[string]time.Duration
	calls  map[string]int

	inflight, peak int
}

func (f *fakeScanner) ScanTotal(_ context.Context, path string) (string, error) {
	name := filepath.Base(path)
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	f.inflight++
	f.peak = max(f.peak, f.inflight)
	d := f.delay[name]
	total, ok := f.totals[name]
	f.mu.Unlock()

	if d > 0 {
		time.Sleep(d)
	}
	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
	if !ok {
		return "", errors.New("total marker not found")
	}
	return total, nil
}

func touch(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestCollectFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "2024-10"), "10-05.xlsx", "10-07.XLSX", "notes.txt", "~$10-05.xlsx", ".10-09.xlsx")
	touch(t, filepath.Join(root, ".cache"), "10-01.xlsx")
	touch(t, filepath.Join(root, "2024-10", "late"), "10-12.xlsm")

	paths, stats, err := reporting.CollectFiles(context.Background(), root)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	if got := strings.Join(names, ","); got != "10-05.xlsx,10-07.XLSX,10-12.xlsm" {
		t.Fatalf("unexpected files %s", got)
	}
	if stats.Matched != 3 {
		t.Fatalf("want matched=3 got=%d", stats.Matched)
	}

	if _, _, err := reporting.CollectFiles(context.Background(), " "); !errors.Is(err, reporting.ErrRootRequired) {
		t.Fatalf("want ErrRootRequired got %v", err)
	}
	if _, _, err := reporting.CollectFiles(context.Background(), filepath.Join(root, "missing")); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestBuildFromDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "2024-10"), "10-05.xlsx", "10-07.xlsx", "10-12.xlsx", "汇总.xlsx", "10-20.xlsx")
	scanner := &fakeScanner{totals: map[string]string{
		"10-05.xlsx": "120.5",
		"10-07.xlsx": "98",
		"10-12.xlsx": "101",
		"汇总.xlsx":    "319.5",
	}}
	svc := reporting.NewService(scanner, nil, nil, reporting.WithWorkers(2))

	cal, err := svc.BuildFromDir(context.Background(), root)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cal.Period.Year != 2024 || cal.Period.Month != 10 {
		t.Fatalf("unexpected period %+v", cal.Period)
	}
	if len(cal.Entries) != 31 || cal.FilledDays() != 3 {
		t.Fatalf("want 31 entries / 3 filled got %d / %d", len(cal.Entries), cal.FilledDays())
	}
	if cal.Entries[11].Total != "101" {
		t.Fatalf("unexpected day 12 %+v", cal.Entries[11])
	}
	if len(cal.Unattributed) != 2 {
		t.Fatalf("want 2 unattributed got %+v", cal.Unattributed)
	}
	reasons := map[string]string{}
	for _, u := range cal.Unattributed {
		reasons[u.Filename] = u.Reason
	}
	if !strings.Contains(reasons["汇总.xlsx"], period.ErrNoDay.Error()) {
		t.Fatalf("unexpected reason for summary file: %q", reasons["汇总.xlsx"])
	}
	if !strings.Contains(reasons["10-20.xlsx"], "marker") {
		t.Fatalf("unexpected reason for unscannable file: %q", reasons["10-20.xlsx"])
	}
}

func TestBuild_TimeoutAndDuplicates(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "2024年2月")
	paths := touch(t, dir, "2月1日.xlsx", "2月2日.xlsx")
	scanner := &fakeScanner{
		totals: map[string]string{"2月1日.xlsx": "1", "2月2日.xlsx": "2"},
		delay:  map[string]time.Duration{"2月2日.xlsx": 500 * time.Millisecond},
	}
	svc := reporting.NewService(scanner, nil, nil, reporting.WithFileTimeout(20*time.Millisecond))

	withDup := append([]string{}, paths...)
	withDup = append(withDup, filepath.Join(dir, ".", "2月1日.xlsx"), "")
	cal, err := svc.Build(context.Background(), withDup)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(cal.Entries) != 29 {
		t.Fatalf("February 2024 has 29 days, got %d", len(cal.Entries))
	}
	if !cal.Entries[0].Filled() || cal.Entries[1].Filled() {
		t.Fatalf("only day 1 should be filled: %+v", cal.Entries[:2])
	}
	if len(cal.Unattributed) != 1 || !strings.Contains(cal.Unattributed[0].Reason, context.DeadlineExceeded.Error()) {
		t.Fatalf("want one timed-out file got %+v", cal.Unattributed)
	}
	scanner.mu.Lock()
	defer scanner.mu.Unlock()
	if scanner.calls["2月1日.xlsx"] != 1 {
		t.Fatalf("duplicate path scanned %d times", scanner.calls["2月1日.xlsx"])
	}
}

func TestBuild_TimedOutScanHoldsSlot(t *testing.T) {
	t.Parallel()

	names := []string{"3月1日.xlsx", "3月2日.xlsx", "3月3日.xlsx"}
	paths := touch(t, filepath.Join(t.TempDir(), "2024-03"), names...)
	scanner := &fakeScanner{totals: map[string]string{}, delay: map[string]time.Duration{}}
	for _, name := range names {
		scanner.totals[name] = "1"
		scanner.delay[name] = 100 * time.Millisecond
	}
	svc := reporting.NewService(scanner, nil, nil,
		reporting.WithWorkers(1),
		reporting.WithFileTimeout(10*time.Millisecond))

	cal, err := svc.Build(context.Background(), paths)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(cal.Unattributed) != len(names) {
		t.Fatalf("want every scan timed out got %+v", cal.Unattributed)
	}
	scanner.mu.Lock()
	defer scanner.mu.Unlock()
	if scanner.peak != 1 {
		t.Fatalf("want at most 1 workbook open got %d", scanner.peak)
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	t.Parallel()

	paths := touch(t, filepath.Join(t.TempDir(), "2024-10"), "10-01.xlsx")
	svc := reporting.NewService(&fakeScanner{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Build(ctx, paths); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled got %v", err)
	}
}

func TestBuild_EmptyBatchUsesClock(t *testing.T) {
	t.Parallel()

	clock := func() time.Time { return time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC) }
	svc := reporting.NewService(nil, period.NewResolver(nil, period.WithClock(clock)), nil)

	cal, err := svc.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cal.Period.Month != 10 || len(cal.Entries) != 31 || cal.FilledDays() != 0 {
		t.Fatalf("unexpected empty calendar %+v", cal.Period)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	paths := touch(t, filepath.Join(root, "2024-10"), "10-05.xlsx", "报表5日.xlsx", "x.xlsx")
	scanner := &fakeScanner{totals: map[string]string{"10-05.xlsx": "7", "报表5日.xlsx": "8", "x.xlsx": "9"}}
	cal, err := reporting.NewService(scanner, nil, nil).Build(context.Background(), paths)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got := reporting.Summary(cal)
	for _, want := range []string{"Report 2024-10 (directory): 1/31 days filled", "2024-10-05 7", "- x.xlsx:", "ignored duplicates: 报表5日.xlsx"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}
