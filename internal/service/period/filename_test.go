package period

import (
	"testing"

	"github.com/mamadbah2/tally/internal/domain/models"
)

func TestExtractDay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		day  int
		rule string
	}{
		{"2024-10-05.xlsx", 5, "iso-date"},
		{"2024_1_9报表.xlsx", 9, "iso-date"},
		{"2024年10月5日合计.xlsx", 5, "cn-day"},
		{"10月12号.xlsx", 12, "cn-day"},
		{"报表8日.xlsx", 8, "cn-day"},
		{"１０月５日.xlsx", 5, "cn-day"},
		{"10-05.xlsx", 5, "trailing-day"},
		{"销售_7.xlsx", 7, "trailing-day"},
		{"/data/2024年10月/10-07.xlsx", 7, "trailing-day"},
		{"report12.xlsx", 12, "before-extension"},
		{"a-123.xlsx", 23, "before-extension"},
	}
	for _, tc := range cases {
		day, rule, ok := ExtractDay(tc.name)
		if !ok || day != tc.day || rule != tc.rule {
			t.Fatalf("%s: want day=%d rule=%s got day=%d rule=%s ok=%v", tc.name, tc.day, tc.rule, day, rule, ok)
		}
	}

	for _, name := range []string{"汇总.xlsx", "合计表", "report-final.xlsx"} {
		if day, rule, ok := ExtractDay(name); ok {
			t.Fatalf("%s: expected no day, got %d via %s", name, day, rule)
		}
	}
}

func TestBareDayRule(t *testing.T) {
	t.Parallel()

	var bare dayRule
	for _, r := range dayRules {
		if r.name == "bare-day" {
			bare = r
		}
	}
	if bare.re == nil {
		t.Fatalf("bare-day rule missing")
	}

	if _, ok := bare.find("第123日"); ok {
		t.Fatalf("three digit run must not be a day")
	}
	if day, ok := bare.find("5日6日"); !ok || day != 6 {
		t.Fatalf("want 6 got %d ok=%v", day, ok)
	}
	if day, ok := bare.find("报表09号"); !ok || day != 9 {
		t.Fatalf("want 9 got %d ok=%v", day, ok)
	}
}

func TestExtractYearMonth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want models.DateSignal
	}{
		{"2024-10-05.xlsx", models.DateSignal{Year: 2024, Month: 10}},
		{"2024.9.xlsx", models.DateSignal{Year: 2024, Month: 9}},
		{"2024_10_汇总.xlsx", models.DateSignal{Year: 2024, Month: 10}},
		{"2024年10月5日.xlsx", models.DateSignal{Year: 2024, Month: 10}},
		{"10月5日.xlsx", models.DateSignal{Month: 10}},
		{"2024-10-report-5.xlsx", models.DateSignal{}},
		{"10-05.xlsx", models.DateSignal{}},
	}
	for _, tc := range cases {
		if got := ExtractYearMonth(tc.name); got != tc.want {
			t.Fatalf("%s: want=%+v got=%+v", tc.name, tc.want, got)
		}
	}
}

func TestDirectoryYearMonth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		dir  string
		want models.DateSignal
	}{
		{"2024-10", models.DateSignal{Year: 2024, Month: 10}},
		{"2024.10.05", models.DateSignal{Year: 2024, Month: 10}},
		{"2024年9月报表", models.DateSignal{Year: 2024, Month: 9}},
		{"reports", models.DateSignal{}},
		{".", models.DateSignal{}},
	}
	for _, tc := range cases {
		if got := DirectoryYearMonth(tc.dir); got != tc.want {
			t.Fatalf("%s: want=%+v got=%+v", tc.dir, tc.want, got)
		}
	}
}

func TestFilenameSignal(t *testing.T) {
	t.Parallel()

	want := models.DateSignal{Year: 2024, Month: 10, Day: 5}
	if got := FilenameSignal("2024-10-05.xlsx"); got != want {
		t.Fatalf("want=%+v got=%+v", want, got)
	}
	if got := FilenameSignal("10-05.xlsx"); got != (models.DateSignal{Day: 5}) {
		t.Fatalf("day only name, got=%+v", got)
	}
}

func TestStripExt(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"10-05.xlsx": "10-05",
		"a.b.xlsx":   "a.b",
		".hidden":    ".hidden",
		"noext":      "noext",
	}
	for in, want := range cases {
		if got := stripExt(in); got != want {
			t.Fatalf("%s: want=%s got=%s", in, want, got)
		}
	}
}
