package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Date is a point in time that is written as a plain calendar date.
// Timestamps read from the collaborator keep their time of day so that a
// partial day can still be counted.
type Date struct {
	time.Time
}

// DateOf returns the calendar date of t (in t's location) at UTC midnight.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Date{t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Int is an integer that accepts both JSON numbers and numeric strings,
// and is always written as a number.
type Int int64

func (i *Int) UnmarshalJSON(b []byte) error {
	v, err := parseNumeric(b)
	if err != nil {
		return err
	}
	*i = Int(v)
	return nil
}

// NumString is an integer written as a JSON string ("15000"). It reads
// numbers and strings alike.
type NumString int64

func (n NumString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatInt(int64(n), 10) + `"`), nil
}

func (n *NumString) UnmarshalJSON(b []byte) error {
	v, err := parseNumeric(b)
	if err != nil {
		return err
	}
	*n = NumString(v)
	return nil
}

func (s *LoanStatus) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "true":
		*s = LoanReturned
		return nil
	case "false":
		*s = LoanOutstanding
		return nil
	}
	v, err := parseNumeric(b)
	if err != nil {
		return err
	}
	*s = LoanStatus(v)
	return nil
}

func isNull(b []byte) bool {
	t := bytes.TrimSpace(b)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// parseNumeric decodes 15000, "15000" and "15000.00". Empty values read as 0.
func parseNumeric(b []byte) (int64, error) {
	if isNull(b) {
		return 0, nil
	}
	raw := string(bytes.TrimSpace(b))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return 0, nil
		}
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	return int64(math.Round(f)), nil
}
