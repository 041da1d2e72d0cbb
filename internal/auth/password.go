// Package auth turns onboarding passwords into the credential hash stored on
// a user. The ledger core only ever sees the hash.
package auth

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"ledger/internal/core"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
)

var cost = bcrypt.DefaultCost

// HashPassword validates strength and returns a bcrypt hash.
func HashPassword(password string) (string, error) {
	if err := checkStrength(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func checkStrength(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return core.Invalid("password", "must be %d-%d characters", minPasswordLength, maxPasswordLength)
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return core.Invalid("password", "needs upper and lower case letters and a digit")
	}
	return nil
}
