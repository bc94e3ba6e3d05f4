package repository

import (
	"context"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/google/uuid"
)

const userColumns = `id, email, username, first_name, last_name, role, bio, skills, hourly_rate, password_hash, is_active, date_joined, last_seen`

// PostgresUserRepository - реализация UserRepository для базы данных.
type PostgresUserRepository struct {
	DB DBTX
}

// NewPostgresUserRepository создаёт новый экземпляр PostgresUserRepository.
func NewPostgresUserRepository(db DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.Bio,
		&u.Skills,
		&u.HourlyRate,
		&u.PasswordHash,
		&u.IsActive,
		&u.DateJoined,
		&u.LastSeen,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// CreateUser сохраняет нового пользователя.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Bio,
		user.Skills,
		user.HourlyRate,
		user.PasswordHash,
		user.IsActive,
		user.DateJoined,
		user.LastSeen)
	return mapError(err)
}

// GetUserByID получает пользователя по ID.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByEmail получает пользователя по email без учёта регистра.
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// UpdateUser сохраняет изменяемые поля профиля.
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE users SET first_name = $1, last_name = $2, bio = $3, skills = $4, hourly_rate = $5,
		                 password_hash = $6, is_active = $7
		WHERE id = $8`,
		user.FirstName,
		user.LastName,
		user.Bio,
		user.Skills,
		user.HourlyRate,
		user.PasswordHash,
		user.IsActive,
		user.ID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastSeen обновляет время последней активности.
func (r *PostgresUserRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.DB.Exec(ctx, `UPDATE users SET last_seen = $1 WHERE id = $2`, at, id)
	return mapError(err)
}
