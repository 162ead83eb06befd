package inventory

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// digit also accepts full-width digits, which show up in text typed on phones.
	digit = `[0-9０-９]`
	space = `[\s\p{Zs}]`
)

var (
	// ErrNoUnits indicates a vocabulary was built without any unit token.
	ErrNoUnits = errors.New("vocabulary needs at least one unit")
	// ErrNegativeNumeral indicates a numeral word mapped to a negative quantity.
	ErrNegativeNumeral = errors.New("numeral value must not be negative")
)

var defaultUnits = []string{
	"个", "只", "条", "斤", "两", "公斤", "克",
	"包", "板", "箱", "盒", "份", "捆", "束", "根", "块", "瓶", "元", "件",
}

var defaultNumerals = map[string]float64{
	"半": 0.5, "一": 1, "二": 2, "三": 3, "四": 4, "五": 5,
	"六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
	"十一": 11, "十二": 12, "十三": 13, "十四": 14, "十五": 15,
}

// DefaultUnits returns a copy of the built-in unit tokens.
func DefaultUnits() []string {
	return slices.Clone(defaultUnits)
}

// DefaultNumerals returns a copy of the built-in numeral-word table.
func DefaultNumerals() map[string]float64 {
	return maps.Clone(defaultNumerals)
}

// Vocabulary holds the unit and numeral-word tables together with the
// patterns compiled from them. It is read-only once built.
type Vocabulary struct {
	units    []string
	numerals map[string]float64

	numeric *regexp.Regexp
	numeral *regexp.Regexp
}

var defaultVocabulary = sync.OnceValue(func() *Vocabulary {
	v, err := NewVocabulary(defaultUnits, defaultNumerals)
	if err != nil {
		panic(err)
	}
	return v
})

// DefaultVocabulary returns the shared built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	return defaultVocabulary()
}

// NewVocabulary builds a vocabulary. Tokens are trimmed and deduplicated, and
// alternations are ordered longest first so "公斤" is never read as "斤".
func NewVocabulary(units []string, numerals map[string]float64) (*Vocabulary, error) {
	unitTokens := longestFirst(units)
	if len(unitTokens) == 0 {
		return nil, ErrNoUnits
	}

	table := make(map[string]float64, len(numerals))
	for word, value := range numerals {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		if value < 0 {
			return nil, fmt.Errorf("%w: %q=%v", ErrNegativeNumeral, word, value)
		}
		table[word] = value
	}

	unitAlt := alternation(unitTokens)
	v := &Vocabulary{
		units:    unitTokens,
		numerals: table,
		numeric:  regexp.MustCompile(`(` + digit + `+\.?` + digit + `*)` + space + `*(` + unitAlt + `)$`),
	}
	if len(table) > 0 {
		words := longestFirst(slices.Collect(maps.Keys(table)))
		v.numeral = regexp.MustCompile(`(` + alternation(words) + `)` + space + `*(` + unitAlt + `)$`)
	}
	return v, nil
}

// Units returns the unit tokens, longest first.
func (v *Vocabulary) Units() []string {
	return slices.Clone(v.units)
}

// Numeral looks up the quantity a numeral word stands for.
func (v *Vocabulary) Numeral(word string) (float64, bool) {
	value, ok := v.numerals[word]
	return value, ok
}

// WithUnits returns a new vocabulary extended by extra unit tokens.
func (v *Vocabulary) WithUnits(extra ...string) (*Vocabulary, error) {
	if len(extra) == 0 {
		return v, nil
	}
	return NewVocabulary(append(slices.Clone(v.units), extra...), v.numerals)
}

func longestFirst(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b string) int {
		if c := cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return out
}

func alternation(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return strings.Join(quoted, "|")
}
