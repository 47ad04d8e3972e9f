package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/clube-quinze/club-api/internal/auth"
	"github.com/clube-quinze/club-api/internal/config"
	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/events"
	"github.com/clube-quinze/club-api/internal/repository/memory"
	"github.com/clube-quinze/club-api/internal/scheduling"
	apperrors "github.com/clube-quinze/club-api/pkg/errorutil"
)

func testAuthConfig() config.Config {
	return config.Config{Auth: config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLMinutes:   15,
		PasswordResetTTLMinutes: 30,
		BcryptCost:              4,
	}}
}

func TestRegisterStartsRecurringSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock.Set(on(1, 12, 0))
	NewRecurringService(f.svc, f.users, f.dispatcher, nil, nil).RegisterHandlers()
	email := &fakeEmail{}
	authSvc := NewAuthService(testAuthConfig(), AuthDependencies{
		UserRepo:          f.users,
		PasswordResetRepo: memory.NewPasswordResetStore(),
		Dispatcher:        f.dispatcher,
		Email:             email,
		Clock:             f.clock,
	})

	preferred := scheduling.At(15, 0)
	result, err := authSvc.Register(ctx, RegisterInput{
		Name:           "Bruno",
		Email:          "Bruno@Example.com",
		Password:       "correct-horse",
		MembershipTier: domain.TierQuinzePremium,
		PreferredTime:  &preferred,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Token == "" || result.User.Role != domain.RoleClubStandard || result.User.Email != "bruno@example.com" {
		t.Fatalf("unexpected result %+v", result.User)
	}
	claims, err := authSvc.TokenManager().ParseToken(result.Token)
	if err != nil || claims.UserID != result.User.ID {
		t.Fatalf("token does not identify user: %v", err)
	}

	page, err := f.svc.GetAppointmentsForUser(ctx, result.User.ID, AppointmentQuery{Size: 100})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalElements != 14 {
		t.Fatalf("expected a weekly series of 14, got %d", page.TotalElements)
	}
	if got := scheduling.TimeOfDayOf(page.Items[0].ScheduledAt); got != preferred {
		t.Fatalf("series at %s, want %s", got, preferred)
	}
	if types := f.dispatcher.types(); types[0] != events.EventUserRegistered {
		t.Fatalf("first event = %s", types[0])
	}
	if len(email.to) != 1 {
		t.Fatalf("welcome email not sent")
	}

	_, err = authSvc.Register(ctx, RegisterInput{Name: "Dup", Email: "bruno@example.com", Password: "another-pass"})
	requireCode(t, err, apperrors.CodeConflict, http.StatusConflict)
}

func TestRegisterValidation(t *testing.T) {
	authSvc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: memory.NewUserStore()})
	cases := map[string]RegisterInput{
		"no name":    {Email: "a@example.com", Password: "12345678"},
		"bad email":  {Name: "A", Email: "nope", Password: "12345678"},
		"short pass": {Name: "A", Email: "a@example.com", Password: "1234"},
		"bad tier":   {Name: "A", Email: "a@example.com", Password: "12345678", MembershipTier: "GOLD"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := authSvc.Register(context.Background(), input)
			requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
		})
	}
}

func TestLoginAndPasswordFlows(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	resets := memory.NewPasswordResetStore()
	clock := scheduling.NewManualClock(fixedNow)
	authSvc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: users, PasswordResetRepo: resets, Clock: clock})

	registered, err := authSvc.Register(ctx, RegisterInput{Name: "Carla", Email: "carla@example.com", Password: "first-pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.User.MembershipTier != domain.TierClub15 {
		t.Fatalf("default tier = %s", registered.User.MembershipTier)
	}

	if _, err := authSvc.Login(ctx, "carla@example.com", "first-pass"); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, err = authSvc.Login(ctx, "carla@example.com", "wrong-pass")
	requireCode(t, err, apperrors.CodeUnauthorized, http.StatusUnauthorized)
	_, err = authSvc.Login(ctx, "nobody@example.com", "first-pass")
	requireCode(t, err, apperrors.CodeUnauthorized, http.StatusUnauthorized)

	err = authSvc.ChangePassword(ctx, registered.User.ID, "wrong-pass", "second-pass")
	requireCode(t, err, apperrors.CodeUnauthorized, http.StatusUnauthorized)
	if err := authSvc.ChangePassword(ctx, registered.User.ID, "first-pass", "second-pass"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	token, err := authSvc.RequestPasswordReset(ctx, "carla@example.com")
	if err != nil || token == nil {
		t.Fatalf("reset request: %v", err)
	}
	if unknown, err := authSvc.RequestPasswordReset(ctx, "ghost@example.com"); err != nil || unknown != nil {
		t.Fatalf("unknown email should be silent, got %v / %v", unknown, err)
	}
	if err := authSvc.ConfirmPasswordReset(ctx, token.Token, "third-pass"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	err = authSvc.ConfirmPasswordReset(ctx, token.Token, "fourth-pass")
	requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
	if _, err := authSvc.Login(ctx, "carla@example.com", "third-pass"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}

	expiring, _ := authSvc.RequestPasswordReset(ctx, "carla@example.com")
	clock.Advance(31 * time.Minute)
	err = authSvc.ConfirmPasswordReset(ctx, expiring.Token, "fifth-pass")
	requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
}

func TestLoginRehashesOnCostChange(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	deps := AuthDependencies{UserRepo: users, PasswordResetRepo: memory.NewPasswordResetStore()}

	registered, err := NewAuthService(testAuthConfig(), deps).Register(ctx, RegisterInput{
		Name: "Clara", Email: "clara@example.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	cfg := testAuthConfig()
	cfg.Auth.BcryptCost = 5
	if _, err := NewAuthService(cfg, deps).Login(ctx, "clara@example.com", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
	stored, err := users.GetByID(ctx, registered.User.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if auth.NeedsRehash(stored.PasswordHash, 5) {
		t.Fatal("hash was not upgraded to the configured cost")
	}
}
