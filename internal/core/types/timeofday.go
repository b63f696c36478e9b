package types

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a service time in seconds after midnight of the service day.
// Values past 24:00:00 are legal for trips running after midnight.
type TimeOfDay int32

// ParseTimeOfDay parses H:MM:SS or HH:MM:SS. Hours may exceed 23.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || len(parts[0]) == 0 || len(parts[0]) > 3 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return 0, fmt.Errorf("time %q: expected H:MM:SS", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || strings.HasPrefix(p, "+") {
			return 0, fmt.Errorf("time %q: not numeric", s)
		}
		v[i] = n
	}
	if v[1] > 59 || v[2] > 59 {
		return 0, fmt.Errorf("time %q: minutes and seconds must be below 60", s)
	}
	return TimeOfDay(v[0]*3600 + v[1]*60 + v[2]), nil
}

// Seconds returns the number of seconds after midnight.
func (t TimeOfDay) Seconds() int { return int(t) }

// String formats the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}
