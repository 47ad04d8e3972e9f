package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/clube-quinze/club-api/internal/auth"
	"github.com/clube-quinze/club-api/internal/config"
	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/events"
	"github.com/clube-quinze/club-api/internal/notify"
	"github.com/clube-quinze/club-api/internal/repository"
	"github.com/clube-quinze/club-api/internal/scheduling"
	apperrors "github.com/clube-quinze/club-api/pkg/errorutil"
)

// AuthService coordinates registration, login and password flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	dispatcher events.Dispatcher
	email      notify.EmailSender
	clock      scheduling.Clock
	logger     *zap.Logger
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Dispatcher        events.Dispatcher
	Email             notify.EmailSender
	Clock             scheduling.Clock
	Logger            *zap.Logger
}

// RegisterInput carries a new member's details.
type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	Phone          string
	MembershipTier domain.MembershipTier
	PreferredTime  *scheduling.TimeOfDay
}

// AuthResult is an authenticated user with an access token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	clock := deps.Clock
	if clock == nil {
		clock = scheduling.SystemClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		dispatcher: deps.Dispatcher,
		email:      deps.Email,
		clock:      clock,
		logger:     logger,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates a member account and announces it so the recurring series can be booked.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("email is invalid", map[string]any{"email": input.Email})
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	tier := input.MembershipTier
	if tier == "" {
		tier = domain.TierClub15
	}
	if !tier.Valid() {
		return nil, apperrors.NewValidationError("unknown membership tier", map[string]any{"tier": tier})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:                     name,
		Email:                    email,
		Phone:                    strings.TrimSpace(input.Phone),
		PasswordHash:             hash,
		Role:                     domain.RoleClubStandard,
		MembershipTier:           tier,
		Active:                   true,
		PreferredAppointmentTime: input.PreferredTime,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, err
	}

	s.publishRegistered(ctx, user)
	s.mail(ctx, user.Email, "Welcome to Clube Quinze",
		fmt.Sprintf("Hello %s, your membership account is ready.", user.Name))

	return s.issue(user)
}

// Login authenticates a member by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorized("user inactive")
	}
	if auth.NeedsRehash(user.PasswordHash, s.bcryptCost) {
		s.rehash(ctx, user, password)
	}
	return s.issue(user)
}

// RequestPasswordReset stores a reset token and mails it. Unknown addresses return nil
// without error so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info("password reset requested for unknown email")
			return nil, nil
		}
		return nil, err
	}

	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.clock.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	s.mail(ctx, user.Email, "Password reset",
		fmt.Sprintf("Use this code to reset your password: %s\nIt expires in %d minutes.", token.Token, int(s.resetTTL/time.Minute)))
	return token, nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	invalid := apperrors.NewValidationError("reset token is invalid or expired", nil)
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	token, err := s.resets.GetByToken(ctx, strings.TrimSpace(tokenStr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invalid
		}
		return err
	}
	now := s.clock.Now()
	if token.UsedAt != nil || now.After(token.ExpiresAt) {
		return invalid
	}
	if err := s.resets.MarkUsed(ctx, token.ID, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invalid
		}
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": userID})
		}
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) publishRegistered(ctx context.Context, user *domain.User) {
	if s.dispatcher == nil {
		return
	}
	payload := events.UserRegisteredPayload{Tier: user.MembershipTier}
	if user.PreferredAppointmentTime != nil {
		preferred := user.PreferredAppointmentTime.String()
		payload.PreferredTime = &preferred
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventUserRegistered,
		UserID:    user.ID,
		Actor:     events.Actor{UserID: user.ID},
		Timestamp: s.clock.Now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("user_registered delivery failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}

func (s *AuthService) mail(ctx context.Context, to, subject, body string) {
	if s.email == nil {
		return
	}
	if err := s.email.Send(ctx, to, subject, body); err != nil {
		s.logger.Warn("email delivery failed", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *AuthService) rehash(ctx context.Context, user *domain.User, password string) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err == nil {
		previous := user.PasswordHash
		user.PasswordHash = hash
		if err = s.users.Update(ctx, user); err != nil {
			user.PasswordHash = previous
		}
	}
	if err != nil {
		s.logger.Warn("password rehash failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}

func validatePassword(password string) error {
	switch err := auth.CheckPasswordPolicy(password); {
	case errors.Is(err, auth.ErrPasswordTooShort):
		return apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"min_length": auth.MinPasswordLength})
	case errors.Is(err, auth.ErrPasswordTooLong):
		return apperrors.NewValidationError("password must be at most 72 bytes", nil)
	}
	return nil
}
