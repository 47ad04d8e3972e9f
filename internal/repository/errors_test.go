package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	slot := &pgconn.PgError{Code: "23505", ConstraintName: appointmentsSlotUnique}
	email := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: appointmentsSlotUnique}

	if !IsUniqueViolation(fmt.Errorf("insert: %w", slot), appointmentsSlotUnique) {
		t.Fatal("expected wrapped slot violation to match")
	}
	if IsUniqueViolation(email, appointmentsSlotUnique) {
		t.Fatal("email violation must not match slot constraint")
	}
	if !IsUniqueViolation(email, "") {
		t.Fatal("empty constraint matches any unique violation")
	}
	if IsUniqueViolation(fk, "") {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if !errors.Is(translateSlotErr(slot), ErrSlotTaken) {
		t.Fatal("slot violation should translate to ErrSlotTaken")
	}
	if translateSlotErr(email) != error(email) {
		t.Fatal("other errors pass through untouched")
	}
}
