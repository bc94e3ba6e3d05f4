package services

import (
	"context"
	"errors"
	"strings"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
)

type AccountService struct {
	Repo   repository.UserRepository
	Tokens *auth.TokenIssuer
	now    Clock
}

// NewAccountService создаёт новый экземпляр AccountService.
func NewAccountService(repo repository.UserRepository, tokens *auth.TokenIssuer) *AccountService {
	return &AccountService{Repo: repo, Tokens: tokens, now: utcNow}
}

// Register создаёт заказчика или исполнителя и выдаёт токен доступа.
func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, models.NewValidationError("confirm_password", "Passwords do not match.")
	}
	if req.Role != models.ClientRole && req.Role != models.FreelancerRole {
		return nil, models.NewValidationError("role", "Role must be CLIENT or FREELANCER.")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.Repo.GetUserByEmail(ctx, email); err == nil {
		return nil, models.NewValidationError("email", "A user with this email already exists.")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		PasswordHash: hash,
		IsActive:     true,
		DateJoined:   s.now(),
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, models.NewValidationError("username", "A user with this email or username already exists.")
		}
		return nil, err
	}
	return s.issue(user)
}

// Login проверяет пароль и выдаёт токен доступа.
func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewUnauthorized("Invalid credentials.")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, models.NewUnauthorized("Invalid credentials.")
	}
	if !user.IsActive {
		return nil, models.NewUnauthorized("Account is deactivated.")
	}
	return s.issue(user)
}

func (s *AccountService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.Tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: user, AccessToken: token}, nil
}

func (s *AccountService) GetProfile(ctx context.Context, actor auth.Principal) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound(err, "User not found.")
	}
	return user, nil
}

// UpdateProfile частично обновляет профиль пользователя.
func (s *AccountService) UpdateProfile(ctx context.Context, actor auth.Principal, req models.ProfileUpdate) (*models.User, error) {
	if req.Skills != nil && !validSkills(*req.Skills) {
		return nil, models.NewValidationError("skills", "Skills must be a comma-separated list with no empty entries.")
	}
	if req.HourlyRate != nil && req.HourlyRate.IsNegative() {
		return nil, models.NewValidationError("hourly_rate", "Hourly rate must not be negative.")
	}

	user, err := s.Repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound(err, "User not found.")
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Skills != nil {
		user.Skills = *req.Skills
	}
	if req.HourlyRate != nil {
		rate := req.HourlyRate.Round(2)
		user.HourlyRate = &rate
	}
	if err := s.Repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// validSkills допускает пустую строку или список без пустых элементов.
func validSkills(skills string) bool {
	if strings.TrimSpace(skills) == "" {
		return true
	}
	for _, skill := range strings.Split(skills, ",") {
		if strings.TrimSpace(skill) == "" {
			return false
		}
	}
	return true
}
