package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := []byte("admin-secret")
	token, err := GenerateToken("admin", secret, time.Hour, time.Now())
	require.NoError(t, err)

	subject, err := ValidateToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "admin", subject)
}

func TestValidateTokenRejects(t *testing.T) {
	secret := []byte("admin-secret")
	expired, err := GenerateToken("admin", secret, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	valid, err := GenerateToken("admin", secret, time.Hour, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret []byte
	}{
		{name: "expired", token: expired, secret: secret},
		{name: "wrong_secret", token: valid, secret: []byte("other")},
		{name: "empty_secret", token: valid, secret: nil},
		{name: "garbage", token: "not.a.token", secret: secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestGenerateTokenEmptySecret(t *testing.T) {
	_, err := GenerateToken("admin", nil, time.Hour, time.Now())
	assert.Error(t, err)
}
