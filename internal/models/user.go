package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string // Роль пользователя

const (
	ClientRole     Role = "CLIENT"     // Заказчик
	FreelancerRole Role = "FREELANCER" // Исполнитель
	AdminRole      Role = "ADMIN"      // Администратор
)

// User представляет модель пользователя.
type User struct {
	ID           uuid.UUID        `json:"id"`
	Email        string           `json:"email"`
	Username     string           `json:"username"`
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	Role         Role             `json:"role"`
	Bio          string           `json:"bio"`
	Skills       string           `json:"skills"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate"`
	PasswordHash string           `json:"-"`
	IsActive     bool             `json:"is_active"`
	DateJoined   time.Time        `json:"date_joined"`
	LastSeen     *time.Time       `json:"last_seen"`
}

// RegisterRequest - тело запроса регистрации.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Username        string `json:"username" validate:"required,max=50"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Role            Role   `json:"role" validate:"required,oneof=CLIENT FREELANCER"`
}

// LoginRequest - тело запроса входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate - правка профиля, nil поля не меняются.
type ProfileUpdate struct {
	FirstName  *string          `json:"first_name" validate:"omitempty,max=100"`
	LastName   *string          `json:"last_name" validate:"omitempty,max=100"`
	Bio        *string          `json:"bio"`
	Skills     *string          `json:"skills"`
	HourlyRate *decimal.Decimal `json:"hourly_rate"`
}

// AuthResponse - ответ на вход/регистрацию.
type AuthResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access"`
}
