package services

import (
	"testing"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerRequest() models.RegisterRequest {
	return models.RegisterRequest{
		Email:           "Ada@Example.com",
		Username:        "ada",
		Password:        "s3cretpass",
		ConfirmPassword: "s3cretpass",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Role:            models.FreelancerRole,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	resp, err := f.accounts.Register(f.ctx, registerRequest())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)

	principal, err := f.accounts.Tokens.Parse(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, principal.UserID)
	assert.Equal(t, models.FreelancerRole, principal.Role)

	_, err = f.accounts.Register(f.ctx, registerRequest())
	verr := requireKind(t, err, models.ErrValidation)
	assert.Equal(t, []string{"A user with this email already exists."}, verr.Errors["email"])

	login, err := f.accounts.Login(f.ctx, models.LoginRequest{Email: "ADA@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = f.accounts.Login(f.ctx, models.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	uerr := requireKind(t, err, models.ErrUnauthorized)
	assert.Equal(t, "Invalid credentials.", uerr.Message)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	req := registerRequest()
	req.ConfirmPassword = "different"
	_, err := f.accounts.Register(f.ctx, req)
	resp := requireKind(t, err, models.ErrValidation)
	assert.Equal(t, []string{"Passwords do not match."}, resp.Errors["confirm_password"])

	req = registerRequest()
	req.Role = models.AdminRole
	_, err = f.accounts.Register(f.ctx, req)
	requireKind(t, err, models.ErrValidation)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	f := newFixture(t)
	resp, err := f.accounts.Register(f.ctx, registerRequest())
	require.NoError(t, err)

	user := resp.User
	user.IsActive = false
	require.NoError(t, f.store.Users().UpdateUser(f.ctx, user))

	_, err = f.accounts.Login(f.ctx, models.LoginRequest{Email: "ada@example.com", Password: "s3cretpass"})
	uerr := requireKind(t, err, models.ErrUnauthorized)
	assert.Equal(t, "Account is deactivated.", uerr.Message)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	resp, err := f.accounts.Register(f.ctx, registerRequest())
	require.NoError(t, err)
	actor := auth.Principal{UserID: resp.User.ID, Role: resp.User.Role}

	bad := "go,,sql"
	_, err = f.accounts.UpdateProfile(f.ctx, actor, models.ProfileUpdate{Skills: &bad})
	requireKind(t, err, models.ErrValidation)

	skills := "go, sql"
	bio := "Backend developer"
	rate := decimal.RequireFromString("45.5")
	user, err := f.accounts.UpdateProfile(f.ctx, actor, models.ProfileUpdate{Skills: &skills, Bio: &bio, HourlyRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "go, sql", user.Skills)
	require.NotNil(t, user.HourlyRate)
	assert.Equal(t, "45.50", user.HourlyRate.StringFixed(2))

	profile, err := f.accounts.GetProfile(f.ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, "Backend developer", profile.Bio)
}
