package service

import (
	"context"
	"testing"
	"time"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/scheduling"
)

func TestRecurringWeeklySeriesSkipsConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Sunday noon: the first 10:00 occurrence is Monday 2025-06-02.
	f.clock.Set(on(1, 12, 0))
	member := f.member(t, domain.TierQuinzePremium)
	blocker := f.member(t, domain.TierClub15)
	if _, err := f.svc.Schedule(ctx, blocker.ID, false, ScheduleInput{ClientID: blocker.ID, ScheduledAt: on(16, 10, 0)}); err != nil {
		t.Fatalf("seed conflict: %v", err)
	}

	recurring := NewRecurringService(f.svc, f.users, nil, nil, nil)
	result, err := recurring.ScheduleForNewUser(ctx, member, member.MembershipTier, nil, 3)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(result.Created) != 13 || result.Skipped != 1 {
		t.Fatalf("expected 13 created and 1 skipped, got %d/%d", len(result.Created), result.Skipped)
	}
	first := result.Created[0]
	if !first.ScheduledAt.Equal(on(2, 10, 0)) || first.ScheduledAt.Weekday() != time.Monday {
		t.Fatalf("first occurrence at %v", first.ScheduledAt)
	}
	for i := 1; i < len(result.Created); i++ {
		gap := result.Created[i].ScheduledAt.Sub(result.Created[i-1].ScheduledAt)
		if gap != 7*24*time.Hour && gap != 14*24*time.Hour {
			t.Fatalf("unexpected gap %v at %d", gap, i)
		}
		if result.Created[i].ClientID != member.ID || result.Created[i].DurationMinutes != 60 {
			t.Fatalf("unexpected appointment %+v", result.Created[i])
		}
	}
	last := result.Created[len(result.Created)-1].ScheduledAt
	if !last.Before(on(2, 10, 0).AddDate(0, 3, 0)) {
		t.Fatalf("series crossed the horizon: %v", last)
	}
}

func TestRecurringBiweeklyAndSelectDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock.Set(on(1, 12, 0))
	recurring := NewRecurringService(f.svc, f.users, nil, nil, nil)

	standard := f.member(t, domain.TierQuinzeStandard)
	preferred := scheduling.At(14, 10)
	result, err := recurring.ScheduleForNewUser(ctx, standard, standard.MembershipTier, &preferred, 3)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(result.Created) != 7 {
		t.Fatalf("expected 7 biweekly bookings, got %d", len(result.Created))
	}
	if !result.Created[0].ScheduledAt.Equal(on(1, 14, 0)) {
		t.Fatalf("preferred time should floor to 14:00 today, got %v", result.Created[0].ScheduledAt)
	}

	selectMember := f.member(t, domain.TierQuinzeSelect)
	late := scheduling.At(23, 0)
	result, err = recurring.ScheduleForNewUser(ctx, selectMember, domain.TierQuinzeSelect, &late, 1)
	if err != nil {
		t.Fatalf("select series: %v", err)
	}
	if len(result.Created) == 0 || result.Created[0].DurationMinutes != 120 {
		t.Fatalf("unexpected select series %+v", result)
	}
	if got := scheduling.TimeOfDayOf(result.Created[0].ScheduledAt); got != scheduling.At(20, 30) {
		t.Fatalf("late preference should clamp to 20:30, got %s", got)
	}
}

func TestRecurringNoops(t *testing.T) {
	f := newFixture(t)
	recurring := NewRecurringService(f.svc, f.users, nil, nil, nil)
	member := f.member(t, domain.TierClub15)
	ctx := context.Background()

	for name, run := range map[string]func() (RecurringResult, error){
		"nil user":  func() (RecurringResult, error) { return recurring.ScheduleForNewUser(ctx, nil, domain.TierClub15, nil, 3) },
		"no tier":   func() (RecurringResult, error) { return recurring.ScheduleForNewUser(ctx, member, "", nil, 3) },
		"no months": func() (RecurringResult, error) { return recurring.ScheduleForNewUser(ctx, member, domain.TierClub15, nil, 0) },
	} {
		result, err := run()
		if err != nil || len(result.Created) != 0 || result.Skipped != 0 {
			t.Errorf("%s: expected no-op, got %+v / %v", name, result, err)
		}
	}
	if f.appointments.Len() != 0 {
		t.Fatalf("no-op runs created %d appointments", f.appointments.Len())
	}
}

func TestRecurringStopsOnCanceledContext(t *testing.T) {
	f := newFixture(t)
	recurring := NewRecurringService(f.svc, f.users, nil, nil, nil)
	member := f.member(t, domain.TierQuinzePremium)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := recurring.ScheduleForNewUser(ctx, member, member.MembershipTier, nil, 3); err == nil {
		t.Fatal("expected context error")
	}
}

func TestFirstOccurrenceRollsToTomorrow(t *testing.T) {
	f := newFixture(t)
	recurring := NewRecurringService(f.svc, f.users, nil, nil, nil)
	f.clock.Set(on(1, 10, 0))
	if got := recurring.FirstOccurrence(nil); !got.Equal(on(2, 10, 0)) {
		t.Fatalf("first occurrence = %v", got)
	}
	early := scheduling.At(7, 0)
	if got := recurring.FirstOccurrence(&early); !got.Equal(on(2, 9, 0)) {
		t.Fatalf("early preference = %v", got)
	}
}
