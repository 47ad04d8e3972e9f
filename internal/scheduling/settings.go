package scheduling

import (
	"errors"
	"fmt"
	"iter"
	"time"
)

// Settings describes the club's bookable day.
type Settings struct {
	Opening      TimeOfDay
	Closing      TimeOfDay
	SlotDuration time.Duration
	Location     *time.Location

	// DefaultTime is used by the recurring generator when a member has no preference.
	DefaultTime TimeOfDay
	// RecurringMonths is the horizon of the series generated at registration.
	RecurringMonths int
}

// DefaultSettings returns 09:00-21:00 with 30 minute slots in UTC.
func DefaultSettings() Settings {
	return Settings{
		Opening:         At(9, 0),
		Closing:         At(21, 0),
		SlotDuration:    30 * time.Minute,
		Location:        time.UTC,
		DefaultTime:     At(10, 0),
		RecurringMonths: 3,
	}
}

// Validate checks that at least one slot fits between opening and closing.
func (s Settings) Validate() error {
	if s.SlotDuration <= 0 || s.SlotDuration%time.Minute != 0 {
		return fmt.Errorf("slot duration must be a positive whole number of minutes, got %s", s.SlotDuration)
	}
	if s.Opening < 0 || s.Closing > At(24, 0) {
		return errors.New("business hours must lie within a single day")
	}
	if s.Closing.Duration()-s.Opening.Duration() < s.SlotDuration {
		return fmt.Errorf("no slot fits between %s and %s", s.Opening, s.Closing)
	}
	if s.RecurringMonths < 0 {
		return errors.New("recurring months must not be negative")
	}
	return nil
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Local converts t to the club's time zone.
func (s Settings) Local(t time.Time) time.Time {
	return t.In(s.location())
}

// Date truncates t to midnight of its calendar date in the club's time zone.
func (s Settings) Date(t time.Time) time.Time {
	y, m, d := s.Local(t).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.location())
}

// ParseDate parses YYYY-MM-DD as a club calendar date.
func (s Settings) ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, value, s.location())
}

// LastStart is the latest slot start that still ends by closing.
func (s Settings) LastStart() TimeOfDay {
	return s.Closing - TimeOfDay(s.SlotDuration/time.Minute)
}

// DayBounds returns the opening and closing instants on date.
func (s Settings) DayBounds(date time.Time) (time.Time, time.Time) {
	day := s.Date(date)
	return s.Opening.On(day), s.Closing.On(day)
}

// Slots yields every slot start on date from opening to LastStart in order.
// The sequence is lazy and may be ranged over repeatedly.
func (s Settings) Slots(date time.Time) iter.Seq[time.Time] {
	first, _ := s.DayBounds(date)
	last := s.LastStart().On(first)
	step := s.SlotDuration
	return func(yield func(time.Time) bool) {
		if step <= 0 {
			return
		}
		for slot := first; !slot.After(last); slot = slot.Add(step) {
			if !yield(slot) {
				return
			}
		}
	}
}

// WithinHours reports whether t starts between opening and LastStart inclusive.
func (s Settings) WithinHours(t time.Time) bool {
	local := s.Local(t)
	offset := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return offset >= s.Opening.Duration() && offset <= s.LastStart().Duration()
}

// IsSlotStart reports whether t is within hours and sits exactly on a slot boundary.
func (s Settings) IsSlotStart(t time.Time) bool {
	if !s.WithinHours(t) {
		return false
	}
	opening, _ := s.DayBounds(t)
	since := s.Local(t).Sub(opening)
	return since%s.SlotDuration == 0
}

// Align clamps preferred into [opening, LastStart] and floors it to a slot boundary.
// A nil preference resolves to DefaultTime.
func (s Settings) Align(preferred *TimeOfDay) TimeOfDay {
	candidate := s.DefaultTime
	if preferred != nil {
		candidate = *preferred
	}
	if candidate < s.Opening {
		candidate = s.Opening
	} else if last := s.LastStart(); candidate > last {
		candidate = last
	}
	slotMinutes := TimeOfDay(s.SlotDuration / time.Minute)
	if slotMinutes > 0 {
		candidate -= (candidate - s.Opening) % slotMinutes
	}
	return candidate
}
