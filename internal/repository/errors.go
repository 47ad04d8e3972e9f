package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSlotTaken is returned when another appointment already holds the scheduled instant.
var ErrSlotTaken = errors.New("repository: scheduled instant already taken")

const (
	uniqueViolation        = "23505"
	appointmentsSlotUnique = "appointments_scheduled_at_key"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint failure,
// optionally restricted to a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func translateSlotErr(err error) error {
	if IsUniqueViolation(err, appointmentsSlotUnique) {
		return ErrSlotTaken
	}
	return err
}
