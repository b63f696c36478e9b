package types

import (
	"fmt"
	"strconv"
	"time"
)

// Date is a calendar date written as YYYYMMDD in feeds.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYYMMDD date and rejects impossible days such as 20230230.
func ParseDate(s string) (Date, error) {
	if len(s) != 8 {
		return Date{}, fmt.Errorf("date %q: expected 8 digits", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Date{}, fmt.Errorf("date %q: not numeric", s)
	}
	d := Date{Year: n / 10000, Month: time.Month(n / 100 % 100), Day: n % 100}
	t := d.Time()
	if t.Year() != d.Year || t.Month() != d.Month || t.Day() != d.Day {
		return Date{}, fmt.Errorf("date %q: no such day", s)
	}
	return d, nil
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.Time().Compare(o.Time())
}

// String formats the date back to YYYYMMDD.
func (d Date) String() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}
