package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("s3cret")

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := CreateJwtSignedString(NewAdminClaim("ops", time.Hour, time.Now()), secret)
	require.NoError(t, err)

	claim, err := ParseAdminToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "ops", claim.Subject)
	assert.Equal(t, RoleAdmin, claim.Role)
}

func TestParseAdminTokenRejects(t *testing.T) {
	expired, err := CreateJwtSignedString(NewAdminClaim("ops", time.Minute, time.Now().Add(-time.Hour)), secret)
	require.NoError(t, err)
	_, err = ParseAdminToken(expired, secret)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	valid, err := CreateJwtSignedString(NewAdminClaim("ops", time.Hour, time.Now()), secret)
	require.NoError(t, err)
	_, err = ParseAdminToken(valid, []byte("other"))
	assert.Error(t, err)

	_, err = ParseAdminToken(valid, nil)
	assert.ErrorIs(t, err, ErrMissingSecret)

	viewer := NewAdminClaim("ops", time.Hour, time.Now())
	viewer.Role = "viewer"
	token, err := CreateJwtSignedString(viewer, secret)
	require.NoError(t, err)
	_, err = ParseAdminToken(token, secret)
	assert.ErrorIs(t, err, ErrNotAdmin)
}
