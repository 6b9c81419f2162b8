package api

import (
	"testing"
	"time"
	"transit-tracking-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatorRoundTrip(t *testing.T) {
	a := NewAuthenticator("secret")
	in := domain.Identity{ID: 12, Role: domain.RoleDriver, Blocked: true}

	tok, err := a.Issue(in, time.Minute)
	require.NoError(t, err)

	out, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestAuthenticatorRejects(t *testing.T) {
	a := NewAuthenticator("secret")

	expired, err := a.Issue(domain.Identity{ID: 1, Role: domain.RoleAdmin}, -time.Minute)
	require.NoError(t, err)
	_, err = a.Parse(expired)
	assert.Error(t, err)

	unknownRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 3, Role: "mechanic"})
	tok, err := unknownRole.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = a.Parse(tok)
	assert.Error(t, err)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "driver"})
	tok, err = noUser.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = a.Parse(tok)
	assert.Error(t, err)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: 3, Role: "driver"})
	tok, err = hs512.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = a.Parse(tok)
	assert.Error(t, err)
}
