package scheduling

import (
	"testing"
	"time"
)

func TestSlotsCoverBusinessDay(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var slots []time.Time
	for slot := range s.Slots(date) {
		slots = append(slots, slot)
	}
	if len(slots) != 24 {
		t.Fatalf("expected 24 slots, got %d", len(slots))
	}
	if got := slots[0]; !got.Equal(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("first slot = %s", got)
	}
	if got := slots[len(slots)-1]; !got.Equal(time.Date(2025, 6, 1, 20, 30, 0, 0, time.UTC)) {
		t.Fatalf("last slot = %s", got)
	}

	opening, closing := s.DayBounds(date)
	for i, slot := range slots {
		if slot.Before(opening) {
			t.Fatalf("slot %s before opening", slot)
		}
		if slot.Add(s.SlotDuration).After(closing) {
			t.Fatalf("slot %s ends after closing", slot)
		}
		if i > 0 && slot.Sub(slots[i-1]) != s.SlotDuration {
			t.Fatalf("slot %d not spaced by %s", i, s.SlotDuration)
		}
	}
}

func TestSlotsRestartableAndStoppable(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	seq := s.Slots(time.Date(2025, 6, 2, 15, 45, 0, 0, time.UTC))

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	if first, second := count(), count(); first != second || first != 24 {
		t.Fatalf("expected restartable sequence of 24, got %d then %d", first, second)
	}

	taken := 0
	for range seq {
		taken++
		if taken == 3 {
			break
		}
	}
	if taken != 3 {
		t.Fatalf("expected early stop at 3, got %d", taken)
	}
}

func TestSlotsUseClubTimeZone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*60*60)
	s := DefaultSettings()
	s.Location = loc

	// 01:00 UTC on June 2 is still June 1 in the club.
	for slot := range s.Slots(time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)) {
		if slot.Day() != 1 || slot.Location() != loc {
			t.Fatalf("slot %s not on club date June 1", slot)
		}
		break
	}
}

func TestIsSlotStart(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	day := func(h, m, sec int) time.Time { return time.Date(2025, 6, 1, h, m, sec, 0, time.UTC) }

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"opening", day(9, 0, 0), true},
		{"last start", day(20, 30, 0), true},
		{"closing", day(21, 0, 0), false},
		{"before opening", day(8, 30, 0), false},
		{"misaligned", day(10, 15, 0), false},
		{"seconds", day(10, 0, 1), false},
	}
	for _, tc := range cases {
		if got := s.IsSlotStart(tc.at); got != tc.want {
			t.Errorf("%s: IsSlotStart(%s) = %v, want %v", tc.name, tc.at, got, tc.want)
		}
	}
	if !s.WithinHours(day(10, 15, 0)) {
		t.Error("10:15 should be within hours")
	}
}

func TestAlign(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	ptr := func(t TimeOfDay) *TimeOfDay { return &t }

	cases := []struct {
		name string
		in   *TimeOfDay
		want TimeOfDay
	}{
		{"nil uses default", nil, At(10, 0)},
		{"early clamps to opening", ptr(At(7, 10)), At(9, 0)},
		{"late clamps to last start", ptr(At(22, 45)), At(20, 30)},
		{"floors to boundary", ptr(At(14, 47)), At(14, 30)},
		{"aligned stays", ptr(At(16, 0)), At(16, 0)},
	}
	for _, tc := range cases {
		if got := s.Align(tc.in); got != tc.want {
			t.Errorf("%s: Align = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
	bad := DefaultSettings()
	bad.Closing = At(9, 15)
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error when no slot fits")
	}
	bad = DefaultSettings()
	bad.SlotDuration = 90 * time.Second
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for sub-minute slot")
	}
}

func TestTimeOfDayText(t *testing.T) {
	t.Parallel()

	var tod TimeOfDay
	if err := tod.UnmarshalText([]byte("08:05:59")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tod != At(8, 5) || tod.String() != "08:05" {
		t.Fatalf("got %s", tod)
	}
	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestManualClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)
	if !clock.Now().Equal(start) {
		t.Fatalf("now = %s", clock.Now())
	}
	if got := clock.Advance(90 * time.Minute); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance = %s", got)
	}
}
