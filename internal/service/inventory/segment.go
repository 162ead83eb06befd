package inventory

import (
	"iter"
	"regexp"
	"strings"
)

var (
	indexedLine  = regexp.MustCompile(`^` + digit + `+` + space + `*[，,。.:：、]`)
	segmentBreak = regexp.MustCompile(`[，,。.]`)
)

// Segment splits a pasted list into candidate item strings.
//
// Lines that open with an explicit index ("3、", "12.") are kept whole, since
// their inner commas belong to the item. Any other line is split on commas and
// full stops. Blank lines and blank segments are dropped.
func Segment(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for line := range strings.SplitSeq(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if indexedLine.MatchString(line) {
				if !yield(line) {
					return
				}
				continue
			}
			for _, part := range segmentBreak.Split(line, -1) {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if !yield(part) {
					return
				}
			}
		}
	}
}
