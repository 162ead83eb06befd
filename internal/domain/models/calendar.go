package models

import (
	"encoding/json"
	"time"
)

// DateSignal holds the date parts recovered from one source. Zero means absent;
// extractors never fill a part the source did not carry.
type DateSignal struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// HasYearMonth reports whether both year and month are present.
func (s DateSignal) HasYearMonth() bool {
	return s.Year > 0 && s.Month > 0
}

// FileInput is what the date engine knows about one report file. Total is an
// opaque figure supplied by the workbook scanner; Err marks a scan that failed
// or was abandoned.
type FileInput struct {
	Path     string    `json:"path,omitempty"`
	Name     string    `json:"name"`
	Dir      string    `json:"dir,omitempty"`
	ModTime  time.Time `json:"modified_at,omitempty"`
	Total    string    `json:"total,omitempty"`
	HasTotal bool      `json:"has_total"`
	Err      error     `json:"-"`
}

// UnmarshalJSON treats a supplied total as found unless has_total says
// otherwise.
func (f *FileInput) UnmarshalJSON(data []byte) error {
	type plain FileInput
	aux := struct {
		*plain
		HasTotal *bool `json:"has_total"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.HasTotal != nil {
		f.HasTotal = *aux.HasTotal
	} else {
		f.HasTotal = f.Total != ""
	}
	return nil
}

// PeriodSource names the signal that decided a period.
type PeriodSource string

const (
	PeriodFromFilename  PeriodSource = "filename"
	PeriodFromDirectory PeriodSource = "directory"
	PeriodFromModTime   PeriodSource = "modtime"
	PeriodFromClock     PeriodSource = "clock"
)

// Period is the single (year, month) governing one calendar build.
type Period struct {
	Year   int          `json:"year" bson:"year"`
	Month  int          `json:"month" bson:"month"`
	Source PeriodSource `json:"source" bson:"source"`
	Votes  int          `json:"votes" bson:"votes"`
}

// CalendarEntry is one day of a dense calendar.
type CalendarEntry struct {
	Date           string `json:"date" bson:"date"`
	SourceFilename string `json:"source_filename" bson:"source_filename"`
	Total          string `json:"total" bson:"total"`
}

// Filled reports whether a file was attributed to the day.
func (e CalendarEntry) Filled() bool {
	return e.SourceFilename != ""
}

// Unattributed is a file that could not be placed on any day.
type Unattributed struct {
	Filename string `json:"filename" bson:"filename"`
	Reason   string `json:"reason" bson:"reason"`
}

// Calendar is the output of one period resolution: a dense day-by-day list
// plus diagnostics. Shadowed lists files that lost a day to an earlier file.
type Calendar struct {
	Period       Period          `json:"period" bson:"period"`
	Entries      []CalendarEntry `json:"entries" bson:"entries"`
	Unattributed []Unattributed  `json:"unattributed" bson:"unattributed"`
	Shadowed     []string        `json:"shadowed" bson:"shadowed"`
}

// FilledDays counts entries that carry a source file.
func (c Calendar) FilledDays() int {
	n := 0
	for _, e := range c.Entries {
		if e.Filled() {
			n++
		}
	}
	return n
}

// MonthlyReport is an archived calendar build.
type MonthlyReport struct {
	ID        string    `json:"id" bson:"_id"`
	SourceDir string    `json:"source_dir" bson:"source_dir"`
	Calendar  Calendar  `json:"calendar" bson:"calendar"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
