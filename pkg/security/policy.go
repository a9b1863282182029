package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

const MinPasswordLength = 8

// ErrWeakPassword is returned when a password fails the length policy.
var ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// tempAlphabet leaves out 0, O, 1, l and I.
const tempAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

// CheckPasswordPolicy counts runes after trimming surrounding space.
func CheckPasswordPolicy(password string) error {
	if utf8.RuneCountInString(strings.TrimSpace(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// GenerateTempPassword draws length characters uniformly from tempAlphabet.
func GenerateTempPassword(length int) (string, error) {
	if length < MinPasswordLength {
		return "", fmt.Errorf("length must be at least %d", MinPasswordLength)
	}
	n := big.NewInt(int64(len(tempAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for range length {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("generate temp password: %w", err)
		}
		b.WriteByte(tempAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
