package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

// memoryUserRepository keeps accounts in process memory. Used when no database is configured.
type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemoryUserRepository returns an empty in-memory account store.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]domain.User)}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, taken := r.users[user.ID]; taken {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findFirst(func(u domain.User) bool { return u.Email == email })
}

func (r *memoryUserRepository) FindByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	return r.findFirst(func(u domain.User) bool { return u.Username == username || u.Email == email })
}

func (r *memoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	return r.collect(func(domain.User) bool { return true }), nil
}

func (r *memoryUserRepository) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	return r.collect(func(u domain.User) bool {
		_, ok := wanted[u.ID]
		return ok
	}), nil
}

func (r *memoryUserRepository) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	return r.collect(func(u domain.User) bool { return u.Role == role }), nil
}

func (r *memoryUserRepository) findFirst(match func(domain.User) bool) (*domain.User, error) {
	matches := r.collect(match)
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return &matches[0], nil
}

// collect returns matching users ordered by creation time.
func (r *memoryUserRepository) collect(match func(domain.User) bool) []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.User{}
	for _, user := range r.users {
		if match(user) {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}
