package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// TimeOfDay is a wall-clock time with second precision, stored as an offset
// from midnight. Valid values lie in [00:00:00, 23:59:59].
type TimeOfDay time.Duration

const maxTimeOfDay = TimeOfDay(24*time.Hour - time.Second)

var inputTimeLayouts = []string{"15:04:05.999999", "15:04:05", "15:04"}

func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second)
}

// ParseTimeOfDay accepts "15:04", "15:04:05" and "15:04:05.000000".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

func (t TimeOfDay) IsValid() bool {
	return t >= 0 && t <= maxTimeOfDay
}

func (t TimeOfDay) Hour() int   { return int(time.Duration(t) / time.Hour) }
func (t TimeOfDay) Minute() int { return int(time.Duration(t)%time.Hour) / int(time.Minute) }
func (t TimeOfDay) Second() int { return int(time.Duration(t)%time.Minute) / int(time.Second) }

// On combines t with the calendar date of d, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, t.Hour(), t.Minute(), t.Second(), 0, d.Location())
}

func (t TimeOfDay) Format() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) Value() (driver.Value, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTimeOfDay, int64(t))
	}
	return t.String(), nil
}

func (t *TimeOfDay) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		return t.scanString(v)
	case []byte:
		return t.scanString(string(v))
	case time.Time:
		*t = NewTimeOfDay(v.Hour(), v.Minute(), v.Second())
		return nil
	case nil:
		*t = 0
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidTimeOfDay, value)
	}
}

func (t *TimeOfDay) scanString(s string) error {
	// Some drivers return a full timestamp for TIME columns.
	if i := strings.LastIndex(s, " "); i >= 0 {
		s = s[i+1:]
	}
	if len(s) > 8 && strings.ContainsAny(s[8:9], "+-Z") {
		s = s[:8]
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
