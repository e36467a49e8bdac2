package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{"valid_simple", "user@example.com", true},
		{"valid_subdomain", "user@mail.example.com", true},
		{"valid_plus", "user+tag@example.com", true},
		{"valid_dash", "user-name@example.com", true},
		{"valid_dot", "user.name@example.com", true},
		{"invalid_no_at", "userexample.com", false},
		{"invalid_no_domain", "user@", false},
		{"invalid_no_user", "@example.com", false},
		{"invalid_double_at", "user@@example.com", false},
		{"invalid_spaces", "user @example.com", false},
		{"invalid_no_tld", "user@example", false},
		{"too_long", strings.Repeat("a", 250) + "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidEmail(tt.email)
			assert.Equal(t, tt.valid, result, "Email: %s", tt.email)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		valid bool
	}{
		{"date_only", "2026-10-15", time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), true},
		{"rfc3339_keeps_date", "2026-10-15T23:30:00-03:00", time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), true},
		{"invalid_month", "2026-13-01", time.Time{}, false},
		{"invalid_day", "2026-02-30", time.Time{}, false},
		{"local_format", "15/10/2026", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			assert.Equal(t, tt.valid, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, tt.valid, IsValidDate(tt.input))
		})
	}
}

func TestMaxLength(t *testing.T) {
	assert.True(t, MaxLength(strings.Repeat("a", 255), 255))
	assert.False(t, MaxLength(strings.Repeat("a", 256), 255))
	// counted in characters, not bytes
	assert.True(t, MaxLength(strings.Repeat("é", 255), 255))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \t\n"))
	assert.False(t, IsBlank(" x "))
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal_string", "Hello World", "Hello World"},
		{"with_null", "Hello\x00World", "HelloWorld"},
		{"with_newline", "Hello\nWorld", "Hello\nWorld"},
		{"with_tab", "Hello\tWorld", "Hello\tWorld"},
		{"with_bell", "Hello\x07World", "HelloWorld"},
		{"unicode", "Olá, tarefa concluída", "Olá, tarefa concluída"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}
