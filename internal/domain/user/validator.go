package user

import (
	"fmt"
	"unicode"
)

const (
	MinLoginLen    = 3
	MaxLoginLen    = 32
	MinPasswordLen = 8
	// bcrypt обрезает пароль после 72 байт.
	MaxPasswordLen = 72
)

// Validator - интерфейс для валидации учетных данных игрока
type Validator interface {
	ValidateRegister(login, password string) error
	ValidateLogin(login string) error
	ValidatePassword(password string) error
}

// PasswordPolicy задает требования к составу пароля.
type PasswordPolicy struct {
	MinLen         int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// StrictPolicy требует все классы символов.
func StrictPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLen:         MinPasswordLen,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

type CredentialsValidator struct {
	policy PasswordPolicy
}

func NewValidator(policy PasswordPolicy) *CredentialsValidator {
	if policy.MinLen <= 0 {
		policy.MinLen = MinPasswordLen
	}
	return &CredentialsValidator{policy: policy}
}

func (v *CredentialsValidator) ValidateRegister(login, password string) error {
	if err := v.ValidateLogin(login); err != nil {
		return fmt.Errorf("login validation failed: %w", err)
	}

	if err := v.ValidatePassword(password); err != nil {
		return fmt.Errorf("password validation failed: %w", err)
	}

	return nil
}

// ValidateLogin допускает буквы, цифры и символы '_', '-', '.'.
func (v *CredentialsValidator) ValidateLogin(login string) error {
	if len(login) < MinLoginLen {
		return fmt.Errorf("login must be at least %d characters", MinLoginLen)
	}

	if len(login) > MaxLoginLen {
		return fmt.Errorf("login must be at most %d characters", MaxLoginLen)
	}

	for _, r := range login {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return fmt.Errorf("login can only contain letters, digits, '_', '-', '.'")
		}
	}

	return nil
}

func (v *CredentialsValidator) ValidatePassword(password string) error {
	if len(password) < v.policy.MinLen {
		return fmt.Errorf("password must be at least %d characters", v.policy.MinLen)
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must be at most %d bytes", MaxPasswordLen)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	switch {
	case v.policy.RequireLower && !hasLower:
		return fmt.Errorf("password must contain at least one lowercase letter")
	case v.policy.RequireUpper && !hasUpper:
		return fmt.Errorf("password must contain at least one uppercase letter")
	case v.policy.RequireDigit && !hasDigit:
		return fmt.Errorf("password must contain at least one digit")
	case v.policy.RequireSpecial && !hasSpecial:
		return fmt.Errorf("password must contain at least one special character")
	}

	return nil
}
