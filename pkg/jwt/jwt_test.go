package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndVerify(t *testing.T) {
	m, err := NewManager("secret", "test", time.Hour)
	require.NoError(t, err)

	tok, err := m.Issue("user-1")
	require.NoError(t, err)

	claims, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestManager_RejectsForeignSecret(t *testing.T) {
	a, _ := NewManager("secret-a", "test", time.Hour)
	b, _ := NewManager("secret-b", "test", time.Hour)

	tok, err := a.Issue("user-1")
	require.NoError(t, err)

	_, err = b.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Expired(t *testing.T) {
	m, _ := NewManager("secret", "test", time.Hour)

	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UserID: "user-1",
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager("", "test", time.Hour)
	assert.Error(t, err)
}
