// Package auth contains the credential primitives of the server: password
// policy enforcement, bcrypt hashing, and signed access tokens.
package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/verdantlabs/accountd/internal/common"
)

// passwordSymbols is the punctuation set a password must draw at least one
// character from.
const passwordSymbols = `@#$%!*+=_^&-[]{}/?.,><\|`

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// ValidatePassword enforces the password policy: at least eight characters
// combining an uppercase letter, a lowercase letter, a digit, and a symbol
// from passwordSymbols. It is a pure function with no side effects.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return common.ErrPasswordTooShort
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return common.ErrPasswordTooWeak
	}
	return nil
}

// HashPassword returns the bcrypt hash of password using the given cost.
// The hash is one-way; the original password is never recoverable from it.
func HashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
// bcrypt performs the comparison in constant time.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
