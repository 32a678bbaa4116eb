package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("admin123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, IsHash(hash))
	assert.NoError(t, ComparePassword(hash, "admin123"))
	assert.Error(t, ComparePassword(hash, "admin124"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestIsHash(t *testing.T) {
	assert.False(t, IsHash("admin123"))
	assert.False(t, IsHash(""))
}

func TestCheckStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		weak     bool
		reason   string
	}{
		{"strong", "SecureP@ss123", false, ""},
		{"demo default", "admin123", true, "commonly used"},
		{"too short", "Pa@1", true, "shorter than"},
		{"no digit", "SecurePass@xyz", true, "needs a digit"},
		{"no special", "SecurePass123", true, "special character"},
		{"single case", "securepass@123", true, "upper and lower"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckStrength(tt.password)
			if !tt.weak {
				assert.NoError(t, err)
				return
			}

			var weakErr *WeakPasswordError
			require.True(t, errors.As(err, &weakErr))
			assert.Contains(t, weakErr.Error(), tt.reason)
		})
	}
}
