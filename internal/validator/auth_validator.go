package validator

import (
	"net/mail"
	"regexp"
	"strings"

	auth "grocery/internal/usecase/auth_usecase"
)

// 英数字と @ . + - _ だけ
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@+\-]{2,150}$`)

// 最低文字数
const minPasswordLength = 8

type AuthValidator struct{}

func NewAuthValidator() *AuthValidator {
	return &AuthValidator{}
}

// サインアップの入力を検証
func (v *AuthValidator) ValidateRegister(username string, email string, password string) error {
	if !usernamePattern.MatchString(username) {
		return auth.ErrInvalidUsername
	}

	// email形式
	if !isEmailLike(email) {
		return auth.ErrInvalidEmailFormat
	}

	if len(password) < minPasswordLength {
		return auth.ErrPasswordTooShort
	}
	if isWeakPassword(password) {
		return auth.ErrWeakPassword
	}
	//ユーザー名と同じパスワードは不可
	if strings.EqualFold(password, username) {
		return auth.ErrWeakPassword
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	if s == "" || len(s) > 255 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// よくある弱いパスワード
var weakPasswords = map[string]struct{}{
	"password":     {},
	"password1":    {},
	"password123":  {},
	"12345678":     {},
	"123456789":    {},
	"1234567890":   {},
	"123456789012": {},
	"qwertyuiop":   {},
	"iloveyou":     {},
	"letmein1":     {},
	"admin123":     {},
	"grocery123":   {},
}

func isWeakPassword(password string) bool {
	_, ok := weakPasswords[strings.ToLower(strings.TrimSpace(password))]
	return ok
}
