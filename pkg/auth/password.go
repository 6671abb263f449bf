package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Reviewer password policy. bcrypt truncates its input at 72 bytes, so that
// is the hard upper bound.
const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

var passwordChecks = []struct {
	re  *regexp.Regexp
	msg string
}{
	{regexp.MustCompile(`[A-Z]`), "password must contain an uppercase letter"},
	{regexp.MustCompile(`[a-z]`), "password must contain a lowercase letter"},
	{regexp.MustCompile(`[0-9]`), "password must contain a digit"},
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// HashPassword hashes a reviewer password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPassword reports whether password matches the stored bcrypt hash
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordStrength enforces the reviewer password policy
func ValidatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLength)
	}

	for _, check := range passwordChecks {
		if !check.re.MatchString(password) {
			return errors.New(check.msg)
		}
	}

	return nil
}

// IsValidEmail validates a reviewer email address
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	return emailRe.MatchString(email)
}
