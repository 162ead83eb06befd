// Command tally runs the inventory and calendar engines against local files.
//
//	tally inventory -in list.txt -out list.xlsx
//	tally calendar -dir reports/2024-10 -out totals.xlsx
//	tally date 2024-10-05.xlsx 报表5日.xlsx
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/domain/models"
	"github.com/mamadbah2/tally/internal/repository/workbook"
	"github.com/mamadbah2/tally/internal/service/inventory"
	"github.com/mamadbah2/tally/internal/service/period"
	"github.com/mamadbah2/tally/internal/service/reporting"
	"github.com/mamadbah2/tally/pkg/logger"
)

const usage = `usage: tally <command> [flags]

commands:
  inventory   parse a pasted inventory list into records
  calendar    build the monthly totals calendar from a report directory
  date        show the date each file name carries
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "tally:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}
	switch args[0] {
	case "inventory":
		return runInventory(args[1:], stdin, stdout, stderr)
	case "calendar":
		return runCalendar(ctx, args[1:], stdout, stderr)
	case "date":
		return runDate(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return errUsage
	}
}

func runInventory(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inventory", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "-", "text file with one item per line, - for stdin")
	out := fs.String("out", "", "write the records to this xlsx file")
	units := fs.String("units", "", "comma separated units added to the built-in table")
	verbose := fs.Bool("v", false, "log every skipped item")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := logger.NewConsole(*verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	vocab := inventory.DefaultVocabulary()
	if extra := splitComma(*units); len(extra) > 0 {
		if vocab, err = vocab.WithUnits(extra...); err != nil {
			return err
		}
	}

	text, err := readInput(*in, stdin)
	if err != nil {
		return err
	}
	res := inventory.NewParser(vocab, log.Named("inventory")).Parse(text)

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, rec := range res.Records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", rec.Sequence, rec.Name, rec.QuantityText(), rec.Unit)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, f := range res.Failures {
		fmt.Fprintf(stderr, "skipped %q: %s\n", f.Text, f.Reason)
	}
	log.Info("extracted records", zap.Int("records", len(res.Records)), zap.Int("failures", len(res.Failures)))

	if *out == "" {
		return nil
	}
	data, err := workbook.ExportInventory(res.Records)
	if err != nil {
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func runCalendar(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("calendar", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "", "directory holding the daily report workbooks")
	out := fs.String("out", "", "write the calendar to this xlsx file")
	marker := fs.String("marker", workbook.DefaultMarker, "label of the cell above each total")
	workers := fs.Int("workers", 4, "workbooks scanned in parallel")
	timeout := fs.Duration("timeout", 30*time.Second, "give up on a single workbook after this long, 0 for no limit")
	verbose := fs.Bool("v", false, "log every file decision")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" && fs.NArg() == 0 {
		fmt.Fprintln(stderr, "calendar: -dir or a list of workbooks is required")
		fs.Usage()
		return errUsage
	}

	log, err := logger.NewConsole(*verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	svc := reporting.NewService(
		workbook.NewScanner(*marker, log.Named("workbook")),
		period.NewResolver(log.Named("period")),
		log.Named("reporting"),
		reporting.WithWorkers(*workers),
		reporting.WithFileTimeout(*timeout),
	)

	var cal models.Calendar
	if *dir != "" {
		cal, err = svc.BuildFromDir(ctx, *dir)
	} else {
		cal, err = svc.Build(ctx, fs.Args())
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, reporting.Summary(cal))

	if *out == "" {
		return nil
	}
	data, err := workbook.ExportCalendar(cal)
	if err != nil {
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func runDate(names []string, stdout, stderr io.Writer) error {
	if len(names) == 0 {
		fmt.Fprintln(stderr, "date: at least one file name is required")
		return errUsage
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, name := range names {
		sig := period.FilenameSignal(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, datePart(sig.Year), datePart(sig.Month), datePart(sig.Day))
	}
	return tw.Flush()
}

func datePart(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func splitComma(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
