package repository

import (
	"testing"
	"time"
)

func TestReminderKeyIncludesScheduledInstant(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC)
	key := ReminderKey("reminder", 7, at, 3*time.Hour)
	if key != "reminder:7:1748869200:180" {
		t.Fatalf("key = %s", key)
	}
	if ReminderKey("reminder", 7, at.Add(time.Hour), 3*time.Hour) == key {
		t.Fatal("moving the appointment must produce a new key")
	}
}
