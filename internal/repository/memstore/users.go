package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
)

type userRepo struct {
	db *shared
}

func (r *userRepo) CreateUser(_ context.Context, user *models.User) error {
	st := r.db.lock()
	defer r.db.unlock()

	for _, u := range st.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return repository.ErrConflict
		}
	}
	st.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	st := r.db.lock()
	defer r.db.unlock()

	u, ok := st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	st := r.db.lock()
	defer r.db.unlock()

	for _, u := range st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) UpdateUser(_ context.Context, user *models.User) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	st.users[user.ID] = *user
	return nil
}

func (r *userRepo) TouchLastSeen(_ context.Context, id uuid.UUID, at time.Time) error {
	st := r.db.lock()
	defer r.db.unlock()

	u, ok := st.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastSeen = &at
	st.users[id] = u
	return nil
}
