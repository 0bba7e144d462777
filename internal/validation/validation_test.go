package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "anna@example.com", false},
		{"upper case normalized", "  Anna@Example.COM ", false},
		{"empty", "", true},
		{"no at", "anna.example.com", true},
		{"two at", "a@b@example.com", true},
		{"no tld", "anna@example", true},
		{"bad local", "an na@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword("short"))
	assert.NoError(t, ValidatePassword("longenough"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 73)))
}

func TestValidateDisplayName(t *testing.T) {
	assert.NoError(t, ValidateDisplayName("Анна Петрова"))
	assert.NoError(t, ValidateDisplayName("Bob's Plumbing"))
	assert.Error(t, ValidateDisplayName(" "))
	assert.Error(t, ValidateDisplayName("A"))
	assert.Error(t, ValidateDisplayName("<script>"))
}

func TestValidateReason(t *testing.T) {
	assert.NoError(t, ValidateReason(""))
	assert.Error(t, ValidateReason(strings.Repeat("я", MaxReasonLength+1)))
}
