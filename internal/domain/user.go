package domain

import (
	"time"

	"github.com/clube-quinze/club-api/internal/scheduling"
)

// Role represents the access level of an account.
type Role string

const (
	RoleClubAdmin    Role = "CLUB_ADMIN"
	RoleClubEmploye  Role = "CLUB_EMPLOYE"
	RoleClubStandard Role = "CLUB_STANDARD"
)

// Privileged reports whether the role may act on behalf of any member.
func (r Role) Privileged() bool {
	return r == RoleClubAdmin || r == RoleClubEmploye
}

// User is a club account.
type User struct {
	ID                       int64
	Name                     string
	Email                    string
	Phone                    string
	PasswordHash             string
	Role                     Role
	MembershipTier           MembershipTier
	Active                   bool
	PreferredAppointmentTime *scheduling.TimeOfDay
	CreatedAt                time.Time
	UpdatedAt                time.Time
}
