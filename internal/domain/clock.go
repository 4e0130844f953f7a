package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	// SlotMinutes is the pricing and alignment unit.
	SlotMinutes = 30

	DateLayout = "2006-01-02"
)

// Clock is a time of day in minutes since midnight. 24:00 is allowed as a closing time.
type Clock int

func NewClock(hour, minute int) Clock { return Clock(hour*60 + minute) }

func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return NewClock(h, m), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Aligned reports whether c falls on a SlotMinutes boundary.
func (c Clock) Aligned() bool { return int(c)%SlotMinutes == 0 }

// ClockOf returns the time-of-day part of t in t's location.
func ClockOf(t time.Time) Clock { return NewClock(t.Hour(), t.Minute()) }

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) Value() (driver.Value, error) {
	return int64(c), nil
}

func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*c = Clock(v)
	case int32:
		*c = Clock(v)
	case float64:
		*c = Clock(int(v))
	case []byte:
		n, err := strconv.Atoi(string(v))
		if err != nil {
			return err
		}
		*c = Clock(n)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*c = Clock(n)
	case nil:
		*c = 0
	default:
		return fmt.Errorf("cannot scan %T into Clock", src)
	}
	return nil
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect. Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return !(aEnd <= bStart || aStart >= bEnd)
}

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, s, loc)
}
