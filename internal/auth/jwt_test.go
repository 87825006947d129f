package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/larkin-dev/chatline/internal/models"
)

func TestInitJWTKey(t *testing.T) {
	InitJWTKey([]byte("test-secret-key-for-jwt-tests"))

	user := &models.User{
		ID:       42,
		Username: "testuser",
		Email:    "test@example.com",
	}

	token, _, err := GenerateToken(user)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestGenerateToken(t *testing.T) {
	InitJWTKey([]byte("test-secret-key-for-jwt-tests"))

	tests := []struct {
		name    string
		user    *models.User
		wantErr bool
	}{
		{
			name: "valid user",
			user: &models.User{
				ID:       7,
				Username: "testuser",
				Email:    "test@example.com",
			},
			wantErr: false,
		},
		{
			name: "missing user ID",
			user: &models.User{
				Username: "testuser",
				Email:    "test@example.com",
			},
			wantErr: true,
		},
		{
			name:    "nil user",
			user:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expiry, err := GenerateToken(tt.user)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, token)

				assert.True(t, expiry.After(time.Now()))
				assert.WithinDuration(t, time.Now().Add(TokenLifetime), expiry, 5*time.Second)

				claims, err := ValidateToken(token)
				assert.NoError(t, err)
				assert.NotNil(t, claims)
				assert.Equal(t, tt.user.ID, claims.UserID)
				assert.Equal(t, tt.user.Username, claims.Subject)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	InitJWTKey([]byte("test-secret-key-for-jwt-tests"))

	validUser := &models.User{
		ID:       9,
		Username: "testuser",
		Email:    "test@example.com",
	}
	validToken, _, err := GenerateToken(validUser)
	assert.NoError(t, err)

	tests := []struct {
		name        string
		tokenString string
		wantErr     bool
	}{
		{
			name:        "valid token",
			tokenString: validToken,
			wantErr:     false,
		},
		{
			name:        "empty token",
			tokenString: "",
			wantErr:     true,
		},
		{
			name:        "invalid token format",
			tokenString: "not.a.valid.jwt.token",
			wantErr:     true,
		},
		{
			name:        "tampered token",
			tokenString: validToken + "tampered",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.tokenString)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, claims)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, claims)
				assert.Equal(t, validUser.ID, claims.UserID)
				assert.Equal(t, validUser.Username, claims.Subject)
			}
		})
	}
}

func TestValidateTokenWrongKey(t *testing.T) {
	InitJWTKey([]byte("first-key"))
	token, _, err := GenerateToken(&models.User{ID: 3, Username: "eve"})
	assert.NoError(t, err)

	InitJWTKey([]byte("second-key"))
	claims, err := ValidateToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}
