package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/repository"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 6, day, hour, minute, 0, 0, time.UTC)
}

func TestAppointmentStoreSlotUniqueness(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewAppointmentStore()

	first := &domain.Appointment{ClientID: 1, ScheduledAt: at(1, 10, 0), Status: domain.AppointmentStatusScheduled}
	if err := store.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := &domain.Appointment{ClientID: 2, ScheduledAt: at(1, 10, 0)}
	if err := store.Create(ctx, second); !errors.Is(err, repository.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	other := &domain.Appointment{ClientID: 2, ScheduledAt: at(1, 11, 0)}
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("create other: %v", err)
	}
	other.ScheduledAt = at(1, 10, 0)
	if err := store.Update(ctx, other); !errors.Is(err, repository.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken on update, got %v", err)
	}

	// An appointment may be saved at the instant it already holds.
	first.Notes = "same slot"
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("update in place: %v", err)
	}

	exists, _ := store.ExistsAtInstant(ctx, at(1, 10, 0), &first.ID)
	if exists {
		t.Fatal("excluded appointment should not count as a conflict")
	}
	exists, _ = store.ExistsAtInstant(ctx, at(1, 10, 0), nil)
	if !exists {
		t.Fatal("expected 10:00 to be occupied")
	}
}

func TestAppointmentStoreCanceledStillBlocks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewAppointmentStore()

	appt := &domain.Appointment{ClientID: 1, ScheduledAt: at(2, 9, 0), Status: domain.AppointmentStatusCanceled}
	if err := store.Create(ctx, appt); err != nil {
		t.Fatalf("create: %v", err)
	}
	if exists, _ := store.ExistsAtInstant(ctx, at(2, 9, 0), nil); !exists {
		t.Fatal("canceled appointment must keep its slot")
	}
}

func TestAppointmentStoreSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewAppointmentStore()

	for i, slot := range []time.Time{at(3, 12, 0), at(1, 9, 0), at(2, 15, 30), at(1, 20, 30), at(4, 9, 0)} {
		client := int64(1)
		if i%2 == 1 {
			client = 2
		}
		if err := store.Create(ctx, &domain.Appointment{ClientID: client, ScheduledAt: slot, Status: domain.AppointmentStatusScheduled}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := store.Search(ctx, repository.AppointmentFilter{Size: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.TotalElements != 5 || page.TotalPages != 3 || len(page.Items) != 2 {
		t.Fatalf("unexpected page: total=%d pages=%d items=%d", page.TotalElements, page.TotalPages, len(page.Items))
	}
	if !page.Items[0].ScheduledAt.Equal(at(1, 9, 0)) || !page.Items[1].ScheduledAt.Equal(at(1, 20, 30)) {
		t.Fatalf("items not sorted ascending: %v, %v", page.Items[0].ScheduledAt, page.Items[1].ScheduledAt)
	}

	client := int64(1)
	from, to := at(2, 0, 0), at(3, 23, 59)
	page, err = store.Search(ctx, repository.AppointmentFilter{ClientID: &client, From: &from, To: &to})
	if err != nil {
		t.Fatalf("search filtered: %v", err)
	}
	if page.TotalElements != 2 || !page.Items[0].ScheduledAt.Equal(at(2, 15, 30)) || !page.Items[1].ScheduledAt.Equal(at(3, 12, 0)) {
		t.Fatalf("unexpected filtered page: %+v", page)
	}
	if page.Size != repository.DefaultPageSize {
		t.Fatalf("expected default page size, got %d", page.Size)
	}

	page, _ = store.Search(ctx, repository.AppointmentFilter{Page: 9, Size: 2})
	if len(page.Items) != 0 || page.TotalElements != 5 {
		t.Fatalf("page past the end should be empty with totals, got %+v", page)
	}
}

func TestAppointmentStoreNotFound(t *testing.T) {
	t.Parallel()
	store := NewAppointmentStore()
	if _, err := store.GetByID(context.Background(), 42); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
	if err := store.Update(context.Background(), &domain.Appointment{ID: 42}); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows on update, got %v", err)
	}
}

func TestReminderLedgerClaimsOnce(t *testing.T) {
	t.Parallel()
	ledger := NewReminderLedger()
	ctx := context.Background()
	when := at(2, 10, 0)
	if ok, _ := ledger.Claim(ctx, 1, when, time.Hour); !ok {
		t.Fatal("first claim should succeed")
	}
	if ok, _ := ledger.Claim(ctx, 1, when, time.Hour); ok {
		t.Fatal("second claim should fail")
	}
	if ok, _ := ledger.Claim(ctx, 1, when, 3*time.Hour); !ok {
		t.Fatal("different offset is a separate reminder")
	}
	if ok, _ := ledger.Claim(ctx, 1, at(2, 14, 0), time.Hour); !ok {
		t.Fatal("a new scheduled instant is a separate reminder")
	}
}
