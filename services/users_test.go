package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speed/config"
	"speed/models"
)

func TestRegisterHashesPasswordAndDefaultsRole(t *testing.T) {
	s := newTestUserService(t)

	user, err := s.Register(RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSubmitter, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "hunter22", user.Password)
}

func TestRegisterRejectsTakenEmailOrUsername(t *testing.T) {
	s := newTestUserService(t)
	_, err := s.Register(RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = s.Register(RegisterInput{Username: "other", Email: "alice@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, ErrUserExists)

	_, err = s.Register(RegisterInput{Username: "alice", Email: "alice2@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestLoginIssuesTokenWithClaims(t *testing.T) {
	s := newTestUserService(t)
	_, err := s.Register(RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22", Role: models.RoleModerator})
	require.NoError(t, err)

	result, err := s.Login("alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, models.RoleModerator, result.User.Role)

	claims, err := s.Tokens.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, string(models.RoleModerator), claims.Role)
	assert.Equal(t, result.User.ID, claims.Subject)
}

func TestLoginFailures(t *testing.T) {
	s := newTestUserService(t)
	user, err := s.Register(RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	// unknown email
	_, err = s.Login("nobody@example.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// wrong password
	_, err = s.Login("alice@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// deactivated account
	require.NoError(t, s.DB.Model(user).Update("is_active", false).Error)
	_, err = s.Login("alice@example.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateRole(t *testing.T) {
	s := newTestUserService(t)
	user, err := s.Register(RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	updated, err := s.UpdateRole(user.PublicID(), models.RoleAnalyst)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAnalyst, updated.Role)

	_, err = s.UpdateRole("99999", models.RoleAnalyst)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	s := newTestUserService(t)
	user, err := s.Register(RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	require.NoError(t, s.UpdatePassword(user.PublicID(), "new-secret"))

	_, err = s.Login("alice@example.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login("alice@example.com", "new-secret")
	require.NoError(t, err)

	require.ErrorIs(t, s.UpdatePassword("99999", "x"), ErrNotFound)
}

func TestModeratorEmails(t *testing.T) {
	s := newTestUserService(t)
	_, err := s.Register(RegisterInput{Username: "mod1", Email: "mod1@example.com", Password: "secret1", Role: models.RoleModerator})
	require.NoError(t, err)
	mod2, err := s.Register(RegisterInput{Username: "mod2", Email: "mod2@example.com", Password: "secret2", Role: models.RoleModerator})
	require.NoError(t, err)
	_, err = s.Register(RegisterInput{Username: "sub", Email: "sub@example.com", Password: "secret3"})
	require.NoError(t, err)

	// deactivated moderators are not notified
	require.NoError(t, s.DB.Model(mod2).Update("is_active", false).Error)

	emails, err := s.ModeratorEmails()
	require.NoError(t, err)
	assert.Equal(t, []string{"mod1@example.com"}, emails)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	s := newTestUserService(t)
	cfg := &config.Config{
		SeedAdminEmail:    "admin@example.com",
		SeedAdminUsername: "admin",
		SeedAdminPassword: "change-me",
	}

	s.SeedAdmin(cfg)
	s.SeedAdmin(cfg)

	var count int64
	require.NoError(t, s.DB.Model(&models.User{}).Where("role = ?", models.RoleAdministrator).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	result, err := s.Login("admin@example.com", "change-me")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdministrator, result.User.Role)
}
