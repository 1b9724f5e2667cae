package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// FixWidth returns s truncated or right-padded with spaces so that it occupies
// exactly width terminal cells. Wide runes count as two cells.
func FixWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "")
	}
	return runewidth.FillRight(s, width)
}

// TruncateLeft keeps the last cells of s that fit in width, marking the cut
// with "...". Long paths stay recognizable by their file name.
func TruncateLeft(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return FixWidth(s, width)
	}

	runes := []rune(s)
	w := 0
	i := len(runes)
	for i > 0 {
		rw := runewidth.RuneWidth(runes[i-1])
		if w+rw > width-3 {
			break
		}
		w += rw
		i--
	}
	return "..." + string(runes[i:])
}

// IsAffirmative reports whether an interactive answer means yes.
// It accepts "y" and "yes" in any case, plus "1" and "true".
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "1", "true":
		return true
	default:
		return false
	}
}

// Plural returns singular when n is one and plural otherwise.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
