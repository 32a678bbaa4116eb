package validation

import (
	"errors"
	"testing"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string   `json:"name" validate:"required,min=2,max=10,nodangerchars"`
	Login    string   `json:"login" validate:"omitempty,username"`
	Note     string   `json:"note" validate:"noxss"`
	Features []string `json:"features" validate:"omitempty,dive,max=5"`
	Min      int      `json:"min"`
	Max      int      `json:"max" validate:"gtefield=Min"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        sample
		wantField string
		wantMsg   string
	}{
		{"valid", sample{Name: "ok", Login: "admin_1", Features: []string{"a"}}, "", ""},
		{"required", sample{}, "name", "this field is required"},
		{"too short", sample{Name: "a"}, "name", "must have a minimum of 2 characters"},
		{"dangerous chars", sample{Name: `a"b`}, "name", "contains forbidden characters"},
		{"bad username", sample{Name: "ok", Login: "ad min"}, "login", "may only contain letters, digits, '_', '.' and '-'"},
		{"script", sample{Name: "ok", Note: "<SCRIPT>alert(1)</script>"}, "note", "contains forbidden markup"},
		{"handler attribute", sample{Name: "ok", Note: `img onerror=x`}, "note", "contains forbidden markup"},
		{"slice element path", sample{Name: "ok", Features: []string{"a", "toolong"}}, "features[1]", "must have a maximum of 5 characters"},
		{"cross field", sample{Name: "ok", Min: 5, Max: 1}, "max", "must not be less than Min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var ve *models.ValidationError
			require.True(t, errors.As(err, &ve), "expected *models.ValidationError, got %v", err)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Equal(t, tt.wantMsg, ve.Message)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestContainsXSS(t *testing.T) {
	assert.True(t, ContainsXSS("javascript:alert(1)"))
	assert.True(t, ContainsXSS("<script src=x>"))
	assert.False(t, ContainsXSS("Кредитная карта"))
	assert.False(t, ContainsXSS("rate 5% per month"))
}
