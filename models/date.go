package models

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time component. It marshals as
// YYYY-MM-DD in both JSON and CSV.
type Date struct {
	time.Time
}

// sourceDateLayouts are the formats seen on the DOA site, most common first.
var sourceDateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
}

// ParseSourceDate parses a date as formatted by the source site. It returns
// nil when the input is empty or matches none of the known layouts, so a
// bad cell degrades to an unknown date instead of failing the record.
func ParseSourceDate(s string) *Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range sourceDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &Date{t}
		}
	}
	return nil
}

func NewDate(year int, month time.Month, day int) *Date {
	return &Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalText lets csvutil (and anything else text-based) render dates the
// same way the JSON form does.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Format(dateLayout)), nil
}

func (d *Date) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	t, err := time.Parse(dateLayout, string(data))
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", string(data), err)
	}
	d.Time = t
	return nil
}
