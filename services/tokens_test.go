package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speed/models"
)

func TestParseExpiry(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"10s", 10 * time.Second},
		{"30m", 30 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		// anything unparseable falls back to one hour
		{"", time.Hour},
		{"90x", time.Hour},
		{"h", time.Hour},
		{"1.5h", time.Hour},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseExpiry(tc.in), "input %q", tc.in)
	}
}

func TestIssueAndVerifyRoundtrip(t *testing.T) {
	tokens := NewTokenService("secret", "1h")
	user := &models.User{Email: "alice@example.com", Role: models.RoleSearcher}
	user.ID = 42

	signed, err := tokens.Issue(user)
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, string(models.RoleSearcher), claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokenService("secret-a", "1h").Issue(&models.User{Email: "a@example.com", Role: models.RoleSubmitter})
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", "1h").Verify(signed)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	tokens := NewTokenService("secret", "1s")
	tokens.expiry = -time.Minute // already expired at issue time

	signed, err := tokens.Issue(&models.User{Email: "a@example.com", Role: models.RoleSubmitter})
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	require.Error(t, err)
}
