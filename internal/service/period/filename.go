// Package period infers the reporting date of spreadsheet files from their
// names, parent directories and modification times, and lays the files out
// on a dense day-by-day calendar.
package period

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"

	"github.com/mamadbah2/tally/internal/domain/models"
)

const (
	digit    = `[0-9０-９]`
	notDigit = `[^0-9０-９]`
)

func digits(quantifier string) string { return digit + quantifier }

// dayRule reads a day of month out of a name. accept, when set, vets each
// candidate match for constraints the regexp engine cannot express.
type dayRule struct {
	name     string
	re       *regexp.Regexp
	group    int
	fullName bool
	accept   func(text string, loc []int) bool
}

// dayRules are tried in order; the first rule with an accepted match decides.
var dayRules = []dayRule{
	{
		name:  "iso-date",
		re:    regexp.MustCompile(`(` + digits(`{4}`) + `)[-_/.](` + digits(`{1,2}`) + `)[-_/.](` + digits(`{1,2}`) + `)`),
		group: 3,
	},
	{
		name:  "cn-day",
		re:    regexp.MustCompile(`(?:(` + digits(`{4}`) + `)年)?(?:(` + digits(`{1,2}`) + `)月)?(` + digits(`{1,2}`) + `)[日号]`),
		group: 3,
	},
	{
		name:   "bare-day",
		re:     regexp.MustCompile(`(` + digits(`+`) + `)[日号]`),
		group:  1,
		accept: isolatedDay,
	},
	{
		name:  "trailing-day",
		re:    regexp.MustCompile(`[-_.](` + digits(`{1,2}`) + `)` + notDigit + `*$`),
		group: 1,
	},
	{
		name:     "before-extension",
		re:       regexp.MustCompile(`(` + digits(`{1,2}`) + `)\.[^.]+$`),
		group:    1,
		fullName: true,
	},
}

// yearMonthRule reads a year and month; yearGroup 0 means the rule carries
// only a month.
type yearMonthRule struct {
	name       string
	re         *regexp.Regexp
	yearGroup  int
	monthGroup int
}

var filenameYearMonthRules = []yearMonthRule{
	{
		name:       "iso-date",
		re:         regexp.MustCompile(`(` + digits(`{4}`) + `)[-_/.](` + digits(`{1,2}`) + `)[-_/.]` + digits(`{1,2}`)),
		yearGroup:  1,
		monthGroup: 2,
	},
	{
		name:       "iso-month",
		re:         regexp.MustCompile(`(` + digits(`{4}`) + `)[-_/.](` + digits(`{1,2}`) + `)` + notDigit + `*$`),
		yearGroup:  1,
		monthGroup: 2,
	},
	{
		name:       "cn-year-month",
		re:         regexp.MustCompile(`(` + digits(`{4}`) + `)年(` + digits(`{1,2}`) + `)月`),
		yearGroup:  1,
		monthGroup: 2,
	},
	{
		name:       "cn-month-day",
		re:         regexp.MustCompile(`(` + digits(`{1,2}`) + `)月` + digits(`{1,2}`) + `[日号]`),
		monthGroup: 1,
	},
}

var directoryYearMonthRules = []yearMonthRule{
	{
		name:       "iso-month",
		re:         regexp.MustCompile(`(` + digits(`{4}`) + `)[-_/.](` + digits(`{1,2}`) + `)`),
		yearGroup:  1,
		monthGroup: 2,
	},
	{
		name:       "cn-year-month",
		re:         regexp.MustCompile(`(` + digits(`{4}`) + `)年(` + digits(`{1,2}`) + `)月`),
		yearGroup:  1,
		monthGroup: 2,
	},
}

// ExtractDay returns the day of month a file name refers to and the rule
// that found it.
func ExtractDay(filename string) (day int, rule string, ok bool) {
	name := filepath.Base(filename)
	base := stripExt(name)
	for _, r := range dayRules {
		text := base
		if r.fullName {
			text = name
		}
		if day, ok := r.find(text); ok {
			return day, r.name, true
		}
	}
	return 0, "", false
}

func (r dayRule) find(text string) (int, bool) {
	for _, loc := range r.re.FindAllStringSubmatchIndex(text, -1) {
		if r.accept != nil && !r.accept(text, loc) {
			continue
		}
		return atoi(text[loc[2*r.group]:loc[2*r.group+1]]), true
	}
	return 0, false
}

// ExtractYearMonth returns the year and month a file name carries. A name
// like "10月5日" yields a month without a year.
func ExtractYearMonth(filename string) models.DateSignal {
	return matchYearMonth(filenameYearMonthRules, stripExt(filepath.Base(filename)))
}

// DirectoryYearMonth reads a year and month from a directory name.
func DirectoryYearMonth(dir string) models.DateSignal {
	return matchYearMonth(directoryYearMonthRules, dir)
}

// FilenameSignal combines the day and year-month passes for one file name.
func FilenameSignal(filename string) models.DateSignal {
	sig := ExtractYearMonth(filename)
	if day, _, ok := ExtractDay(filename); ok {
		sig.Day = day
	}
	return sig
}

func matchYearMonth(rules []yearMonthRule, text string) models.DateSignal {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var sig models.DateSignal
		if r.yearGroup > 0 {
			sig.Year = atoi(m[r.yearGroup])
		}
		sig.Month = atoi(m[r.monthGroup])
		return sig
	}
	return models.DateSignal{}
}

// isolatedDay accepts a "<digits>日" match only when the digit run is at most
// two long and no digit follows the marker.
func isolatedDay(text string, loc []int) bool {
	run := []rune(text[loc[2]:loc[3]])
	if len(run) > 2 {
		return false
	}
	next, size := utf8.DecodeRuneInString(text[loc[1]:])
	return size == 0 || !isDigit(next)
}

func isDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= '０' && r <= '９')
}

func stripExt(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if strings.Trim(base, ".") == "" {
		return name
	}
	return base
}

func atoi(s string) int {
	n, err := strconv.Atoi(width.Narrow.String(s))
	if err != nil {
		return 0
	}
	return n
}
