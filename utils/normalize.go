package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalRe    = regexp.MustCompile(`\d+(?:\.\d+)?`)
	yearRe       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	moreSuffixRe = regexp.MustCompile(`More\s*\.+\s*$`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// CleanCellText collapses whitespace and strips the "More ..." suffix the
// source site appends to truncated cells.
func CleanCellText(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = moreSuffixRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ",")
	return strings.TrimSpace(s)
}

// ParseDecimal extracts a non-negative decimal from loosely formatted text
// such as "1,234.50 Ha". Returns nil when no usable number is present.
func ParseDecimal(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	match := decimalRe.FindString(s)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// ParseYear extracts a four digit year from loosely formatted text.
// Returns nil when none is present.
func ParseYear(s string) *int {
	match := yearRe.FindString(strings.TrimSpace(s))
	if match == "" {
		return nil
	}
	v, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &v
}
