package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/daylog/time-tracker/internal/core/domain"
)

type AuthRepository struct {
	mu     sync.RWMutex
	byName map[string]*domain.User
}

func NewAuthRepository() *AuthRepository {
	return &AuthRepository{byName: make(map[string]*domain.User)}
}

func (r *AuthRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[user.Name]; exists {
		return nil, domain.ErrUserExists
	}
	u := *user
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	r.byName[u.Name] = &u
	out := u
	return &out, nil
}

func (r *AuthRepository) FindByName(_ context.Context, name string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byName[name]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}
