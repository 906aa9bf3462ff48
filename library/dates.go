package library

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// DateLayout is the dd/mm/yyyy textual form used everywhere.
	DateLayout = "02/01/2006"

	// DateOverrideEnv pins the current date for a whole run.
	DateOverrideEnv = "DATE_ACTUEL"
)

// Date is a calendar day. It serialises as dd/mm/yyyy.
type Date struct {
	t time.Time
}

// NewDate returns the calendar day of y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a dd/mm/yyyy string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q, expected dd/mm/yyyy", ErrValidation, s)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String formats d as dd/mm/yyyy.
func (d Date) String() string { return d.t.Format(DateLayout) }

// IsZero reports whether d was never set.
func (d Date) IsZero() bool { return d.t.IsZero() }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// Before reports whether d falls on an earlier day than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// Equal reports whether d and other are the same day.
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// Time returns the underlying midnight UTC instant.
func (d Date) Time() time.Time { return d.t }

// MarshalJSON writes d as a dd/mm/yyyy string; the zero Date is "".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts dd/mm/yyyy, "" and null.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
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

// DateSource resolves "today".
type DateSource interface {
	Today() Date
}

// EnvDateSource reads DATE_ACTUEL and falls back to the system clock. An
// unparsable override is ignored.
type EnvDateSource struct{}

func (EnvDateSource) Today() Date {
	if v := os.Getenv(DateOverrideEnv); v != "" {
		if d, err := ParseDate(v); err == nil {
			return d
		}
	}
	return DateOf(time.Now())
}

// FixedDate always returns the same day.
type FixedDate Date

func (f FixedDate) Today() Date { return Date(f) }

// CurrentDate returns today's date from the environment source as text.
func CurrentDate() string { return EnvDateSource{}.Today().String() }
