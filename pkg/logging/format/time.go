package format

import (
	"strings"
	"sync"
	"time"

	"github.com/vjeantet/jodaTime"
)

// Sentinel patterns selecting epoch output instead of text.
const (
	PatternEpochMillis  = "T"
	PatternEpochSeconds = "t"

	DefaultPattern = "yyyy-MM-dd HH:mm:ss"
)

// TimeFormatter renders an event timestamp for a backend. The zero time means
// "no value" and yields nil.
type TimeFormatter interface {
	Format(t time.Time) any
}

// DateTimeFormatter formats timestamps from a Joda-style date pattern
// (yyyy-MM-dd HH:mm:ss and friends), evaluated in the local time zone. The
// pattern "T" yields epoch milliseconds and "t" epoch seconds, both as int64.
//
// On first use the pattern is compiled to a time.Format layout and cached.
// Patterns a layout cannot express are rendered by jodaTime.
type DateTimeFormatter struct {
	pattern string

	once   sync.Once
	layout string
	native bool
}

// NewDateTimeFormatter returns a formatter for pattern. An empty pattern
// selects DefaultPattern.
func NewDateTimeFormatter(pattern string) *DateTimeFormatter {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &DateTimeFormatter{pattern: pattern}
}

// Pattern returns the configured pattern.
func (f *DateTimeFormatter) Pattern() string { return f.pattern }

func (f *DateTimeFormatter) Format(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	switch f.pattern {
	case PatternEpochMillis:
		return t.UnixMilli()
	case PatternEpochSeconds:
		return t.UnixMilli() / 1000
	}

	f.once.Do(func() {
		f.layout, f.native = toLayout(f.pattern)
	})

	local := t.In(time.Local)
	if f.native {
		return local.Format(f.layout)
	}
	return jodaTime.Format(f.pattern, local)
}

// Element kinds tracked while building a layout. Go reads digits greedily,
// so an unpadded number or a fraction must not be followed by a number.
const (
	kindText = iota
	kindPadded
	kindUnpadded
	kindFraction
)

// layoutLiterals are the characters that never form part of a Go layout
// element, whatever their neighbours.
const layoutLiterals = " -/:T,.'"

// toLayout translates pattern into a time.Format layout. It reports false
// when some field or literal has no safe layout equivalent.
func toLayout(pattern string) (string, bool) {
	var b strings.Builder
	prev := kindText
	runes := []rune(pattern)

	for i := 0; i < len(runes); {
		c := runes[i]

		if c == '\'' {
			lit, next, ok := quoted(runes, i)
			if !ok || !safeLiteral(lit) {
				return "", false
			}
			b.WriteString(lit)
			prev = kindText
			i = next
			continue
		}

		if !isLetter(c) {
			if !safeLiteral(string(c)) {
				return "", false
			}
			b.WriteRune(c)
			prev = kindText
			i++
			continue
		}

		n := 1
		for i+n < len(runes) && runes[i+n] == c {
			n++
		}
		elem, kind, ok := layoutElement(c, n, b.String())
		if !ok {
			return "", false
		}
		if kind != kindText && (prev == kindUnpadded || prev == kindFraction) {
			return "", false
		}
		b.WriteString(elem)
		prev = kind
		i += n
	}
	return b.String(), true
}

// layoutElement maps a run of n pattern letters c to its layout element.
// kind classifies the element for adjacency checks.
func layoutElement(c rune, n int, sofar string) (string, int, bool) {
	numeric := func(padded, unpadded string) (string, int, bool) {
		switch n {
		case 1:
			if unpadded == "" {
				return "", 0, false
			}
			return unpadded, kindUnpadded, true
		case 2:
			return padded, kindPadded, true
		}
		return "", 0, false
	}

	switch c {
	case 'y':
		switch n {
		case 2:
			return "06", kindPadded, true
		case 1, 3, 4:
			return "2006", kindPadded, true
		}
	case 'M':
		switch {
		case n >= 4:
			return "January", kindText, true
		case n == 3:
			return "Jan", kindText, true
		}
		return numeric("01", "1")
	case 'd':
		return numeric("02", "2")
	case 'H':
		return numeric("15", "")
	case 'h':
		return numeric("03", "3")
	case 'm':
		return numeric("04", "4")
	case 's':
		return numeric("05", "5")
	case 'S':
		if n > 9 || !(strings.HasSuffix(sofar, ".") || strings.HasSuffix(sofar, ",")) {
			return "", 0, false
		}
		return strings.Repeat("0", n), kindFraction, true
	case 'E':
		if n >= 4 {
			return "Monday", kindText, true
		}
		return "Mon", kindText, true
	case 'a':
		if n == 1 {
			return "PM", kindText, true
		}
	case 'z':
		if n < 4 {
			return "MST", kindText, true
		}
	case 'Z':
		switch n {
		case 1:
			return "-0700", kindText, true
		case 2:
			return "-07:00", kindText, true
		}
	}
	return "", 0, false
}

// quoted reads a quoted literal starting at runes[start]. '' is a single
// quote both inside and outside quoted text. ok is false when the quote is
// never closed.
func quoted(runes []rune, start int) (lit string, next int, ok bool) {
	if start+1 < len(runes) && runes[start+1] == '\'' {
		return "'", start + 2, true
	}
	var out []rune
	for i := start + 1; i < len(runes); i++ {
		if runes[i] != '\'' {
			out = append(out, runes[i])
			continue
		}
		if i+1 < len(runes) && runes[i+1] == '\'' {
			out = append(out, '\'')
			i++
			continue
		}
		return string(out), i + 1, true
	}
	return "", len(runes), false
}

func safeLiteral(s string) bool {
	for _, r := range s {
		if r < 0x80 && !strings.ContainsRune(layoutLiterals, r) {
			return false
		}
	}
	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
