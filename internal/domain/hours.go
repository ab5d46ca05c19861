package domain

import (
	"strings"
	"time"
)

// DayHours holds an "HH:MM" open/close pair for one weekday.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// WeeklyHours maps lowercase english weekday names ("monday") to that day's
// hours. A missing day means the store is closed that day.
type WeeklyHours map[string]DayHours

var weekdays = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayKey returns the map key used for d.
func WeekdayKey(d time.Weekday) string { return weekdays[d] }

// Known reports whether any day has hours configured.
func (w WeeklyHours) Known() bool { return len(w) > 0 }

// For returns the hours for d, or false when the store is closed that day or
// the entry cannot be parsed.
func (w WeeklyHours) For(d time.Weekday) (DayHours, bool) {
	h, ok := w[WeekdayKey(d)]
	if !ok {
		return DayHours{}, false
	}
	open, close, ok := h.minutes()
	if !ok || close <= open {
		return DayHours{}, false
	}
	return h, true
}

// OpenAt reports whether t's wall-clock time falls within [open, close) of
// t's weekday. Callers convert t to the store's location first.
func (w WeeklyHours) OpenAt(t time.Time) bool {
	h, ok := w.For(t.Weekday())
	if !ok {
		return false
	}
	open, close, _ := h.minutes()
	now := t.Hour()*60 + t.Minute()
	return now >= open && now < close
}

// Label renders the day's hours for display, "Closed" when absent.
func (w WeeklyHours) Label(d time.Weekday) string {
	h, ok := w.For(d)
	if !ok {
		return "Closed"
	}
	return h.Open + " - " + h.Close
}

// Normalize lowercases day keys and drops unknown days and blank entries.
func (w WeeklyHours) Normalize() WeeklyHours {
	if len(w) == 0 {
		return nil
	}
	out := make(WeeklyHours, len(w))
	for k, v := range w {
		key := strings.ToLower(strings.TrimSpace(k))
		if !isWeekday(key) {
			continue
		}
		v.Open, v.Close = strings.TrimSpace(v.Open), strings.TrimSpace(v.Close)
		if v.Open == "" && v.Close == "" {
			continue
		}
		out[key] = v
	}
	return out
}

// Validate returns the first day whose entry is not a valid HH:MM pair with
// close after open.
func (w WeeklyHours) Validate() error {
	for day, h := range w {
		if !isWeekday(day) {
			return Invalid("hours", "unknown weekday "+day)
		}
		open, close, ok := h.minutes()
		if !ok {
			return Invalid("hours", day+" must use HH:MM times")
		}
		if close <= open {
			return Invalid("hours", day+" closes before it opens")
		}
	}
	return nil
}

func (h DayHours) minutes() (open, close int, ok bool) {
	o, err := time.Parse("15:04", h.Open)
	if err != nil {
		return 0, 0, false
	}
	c, err := time.Parse("15:04", h.Close)
	if err != nil {
		return 0, 0, false
	}
	return o.Hour()*60 + o.Minute(), c.Hour()*60 + c.Minute(), true
}

func isWeekday(key string) bool {
	for _, d := range weekdays {
		if d == key {
			return true
		}
	}
	return false
}
