package period

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/domain/models"
)

var (
	// ErrNoDay indicates no day rule matched the file name.
	ErrNoDay = errors.New("cannot identify date from file name")
	// ErrDayOutOfRange indicates a day that does not exist in the resolved month.
	ErrDayOutOfRange = errors.New("day outside resolved month")
	// ErrNoTotal indicates the file carried no total figure.
	ErrNoTotal = errors.New("total not found")
)

// DaysIn returns the number of days in the month, leap years included.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// BuildCalendar resolves the batch period and returns one entry for every
// day of it. A day is claimed by the first file in input order that maps to
// it; later files for the same day are listed as shadowed. Files that cannot
// be placed are reported, never fatal.
func (r *Resolver) BuildCalendar(files []models.FileInput) models.Calendar {
	period := r.ResolvePeriod(files)
	lastDay := DaysIn(period.Year, time.Month(period.Month))

	cal := models.Calendar{
		Period:       period,
		Entries:      make([]models.CalendarEntry, 0, lastDay),
		Unattributed: []models.Unattributed{},
		Shadowed:     []string{},
	}

	claimed := make(map[int]models.FileInput, lastDay)
	for _, f := range describeAll(files) {
		day, rule, ok := ExtractDay(f.Name)
		var reason error
		switch {
		case !ok:
			reason = ErrNoDay
		case day < 1 || day > lastDay:
			reason = fmt.Errorf("%w: day %d", ErrDayOutOfRange, day)
		case f.Err != nil:
			reason = f.Err
		case !f.HasTotal:
			reason = ErrNoTotal
		}
		if reason != nil {
			r.logger.Warn("file not placed on calendar", zap.String("file", f.Name), zap.Error(reason))
			cal.Unattributed = append(cal.Unattributed, models.Unattributed{Filename: f.Name, Reason: reason.Error()})
			continue
		}
		if _, taken := claimed[day]; taken {
			r.logger.Debug("day already claimed", zap.String("file", f.Name), zap.Int("day", day))
			cal.Shadowed = append(cal.Shadowed, f.Name)
			continue
		}
		r.logger.Debug("file placed", zap.String("file", f.Name), zap.Int("day", day), zap.String("rule", rule))
		claimed[day] = f
	}

	for day := 1; day <= lastDay; day++ {
		entry := models.CalendarEntry{Date: FormatDate(period.Year, period.Month, day)}
		if f, ok := claimed[day]; ok {
			entry.SourceFilename = f.Name
			entry.Total = f.Total
		}
		cal.Entries = append(cal.Entries, entry)
	}

	r.logger.Info("calendar built",
		zap.String("period", fmt.Sprintf("%04d-%02d", period.Year, period.Month)),
		zap.Int("days", lastDay),
		zap.Int("filled", len(claimed)),
		zap.Int("unattributed", len(cal.Unattributed)))
	return cal
}
