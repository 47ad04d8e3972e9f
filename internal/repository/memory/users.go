package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clube-quinze/club-api/internal/domain"
	"github.com/clube-quinze/club-api/internal/repository"
)

// UserStore keeps accounts keyed by id with a case-insensitive email index.
type UserStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]domain.User
	byEmail map[string]int64
}

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{byID: make(map[int64]domain.User), byEmail: make(map[string]int64)}
}

var _ repository.UserRepository = (*UserStore)(nil)

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, taken := s.byEmail[key]; taken {
		return repository.ErrEmailTaken
	}
	s.nextID++
	now := time.Now().UTC()
	user.ID = s.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	s.byID[user.ID] = *user
	s.byEmail[key] = user.ID
	return nil
}

func (s *UserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	key := strings.ToLower(user.Email)
	if owner, taken := s.byEmail[key]; taken && owner != user.ID {
		return repository.ErrEmailTaken
	}
	delete(s.byEmail, strings.ToLower(existing.Email))
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now().UTC()
	s.byID[user.ID] = *user
	s.byEmail[key] = user.ID
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s.GetByID(ctx, id)
}
