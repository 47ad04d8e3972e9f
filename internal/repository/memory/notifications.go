package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/repository"
)

// PushTokenStore keeps device registrations keyed by token string.
type PushTokenStore struct {
	mu      sync.RWMutex
	nextID  int64
	byToken map[string]domain.PushToken
}

// NewPushTokenStore returns an empty store.
func NewPushTokenStore() *PushTokenStore {
	return &PushTokenStore{byToken: make(map[string]domain.PushToken)}
}

var _ repository.PushTokenRepository = (*PushTokenStore)(nil)

func (s *PushTokenStore) Upsert(_ context.Context, token *domain.PushToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	existing, ok := s.byToken[token.Token]
	if ok {
		token.ID = existing.ID
		token.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		token.ID = s.nextID
		token.CreatedAt = now
	}
	token.InvalidatedAt = nil
	token.LastSuccessAt = nil
	token.UpdatedAt = now
	s.byToken[token.Token] = *token
	return nil
}

func (s *PushTokenStore) ListActiveByUser(_ context.Context, userID int64) ([]domain.PushToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PushToken
	for _, token := range s.byToken {
		if token.UserID == userID && token.InvalidatedAt == nil {
			out = append(out, token)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *PushTokenStore) Invalidate(_ context.Context, id int64, at time.Time) error {
	return s.mutate(id, func(token *domain.PushToken) { token.InvalidatedAt = &at })
}

func (s *PushTokenStore) MarkSuccess(_ context.Context, id int64, at time.Time) error {
	return s.mutate(id, func(token *domain.PushToken) { token.LastSuccessAt = &at })
}

// Get returns the registration for a token string.
func (s *PushTokenStore) Get(token string) (domain.PushToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byToken[token]
	return t, ok
}

func (s *PushTokenStore) mutate(id int64, apply func(*domain.PushToken)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, token := range s.byToken {
		if token.ID == id {
			apply(&token)
			token.UpdatedAt = time.Now().UTC()
			s.byToken[key] = token
			return nil
		}
	}
	return pgx.ErrNoRows
}

// PushDeliveryStore appends delivery records.
type PushDeliveryStore struct {
	mu         sync.Mutex
	nextID     int64
	deliveries []domain.PushDelivery
}

// NewPushDeliveryStore returns an empty store.
func NewPushDeliveryStore() *PushDeliveryStore {
	return &PushDeliveryStore{}
}

var _ repository.PushDeliveryRepository = (*PushDeliveryStore)(nil)

func (s *PushDeliveryStore) Create(_ context.Context, delivery *domain.PushDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	delivery.ID = s.nextID
	delivery.CreatedAt = time.Now().UTC()
	s.deliveries = append(s.deliveries, *delivery)
	return nil
}

// All returns a copy of every recorded delivery in insertion order.
func (s *PushDeliveryStore) All() []domain.PushDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PushDelivery(nil), s.deliveries...)
}

// PasswordResetStore keeps reset tokens keyed by token string.
type PasswordResetStore struct {
	mu      sync.Mutex
	nextID  int64
	byToken map[string]domain.PasswordResetToken
}

// NewPasswordResetStore returns an empty store.
func NewPasswordResetStore() *PasswordResetStore {
	return &PasswordResetStore{byToken: make(map[string]domain.PasswordResetToken)}
}

var _ repository.PasswordResetRepository = (*PasswordResetStore)(nil)

func (s *PasswordResetStore) Create(_ context.Context, token *domain.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	token.ID = s.nextID
	token.CreatedAt = time.Now().UTC()
	s.byToken[token.Token] = *token
	return nil
}

func (s *PasswordResetStore) GetByToken(_ context.Context, tokenStr string) (*domain.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.byToken[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &token, nil
}

func (s *PasswordResetStore) MarkUsed(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, token := range s.byToken {
		if token.ID == id && token.UsedAt == nil {
			token.UsedAt = &at
			s.byToken[key] = token
			return nil
		}
	}
	return pgx.ErrNoRows
}

// ReminderLedger remembers claims for the lifetime of the process.
type ReminderLedger struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewReminderLedger returns an empty ledger.
func NewReminderLedger() *ReminderLedger {
	return &ReminderLedger{claimed: make(map[string]struct{})}
}

var _ repository.ReminderLedger = (*ReminderLedger)(nil)

func (l *ReminderLedger) Claim(_ context.Context, appointmentID int64, scheduledAt time.Time, offset time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := repository.ReminderKey("reminder", appointmentID, scheduledAt, offset)
	if _, seen := l.claimed[key]; seen {
		return false, nil
	}
	l.claimed[key] = struct{}{}
	return true, nil
}
