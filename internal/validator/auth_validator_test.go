package validator

import (
	"testing"

	auth "grocery/internal/usecase/auth_usecase"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	v := NewAuthValidator()

	cases := []struct {
		name     string
		username string
		email    string
		password string
		want     error
	}{
		{"ok", "alice", "alice@example.com", "s3cret-pass", nil},
		{"ok with symbols", "a.b+c@d", "ab@example.com", "s3cret-pass", nil},
		{"username too short", "a", "a@example.com", "s3cret-pass", auth.ErrInvalidUsername},
		{"username with space", "al ice", "a@example.com", "s3cret-pass", auth.ErrInvalidUsername},
		{"bad email", "alice", "alice.example.com", "s3cret-pass", auth.ErrInvalidEmailFormat},
		{"email without domain dot", "alice", "alice@localhost", "s3cret-pass", auth.ErrInvalidEmailFormat},
		{"email with name part", "alice", "Alice <alice@example.com>", "s3cret-pass", auth.ErrInvalidEmailFormat},
		{"short password", "alice", "alice@example.com", "short", auth.ErrPasswordTooShort},
		{"weak password", "alice", "alice@example.com", "Password123", auth.ErrWeakPassword},
		{"password equals username", "alice-smith", "alice@example.com", "ALICE-SMITH", auth.ErrWeakPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateRegister(tc.username, tc.email, tc.password)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
