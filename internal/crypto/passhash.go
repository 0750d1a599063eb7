// Package crypto implements server-side password hashing, verification and
// the password policy applied at registration.
package crypto

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used outside of tests.
const DefaultCost = 12

// MinPasswordLength is the shortest acceptable password, in characters.
const MinPasswordLength = 8

// MaxPasswordLength is bcrypt's input limit in bytes.
const MaxPasswordLength = 72

// symbols is the punctuation class a password must draw at least one rune from.
const symbols = `!@#$%^&*(),.?":{}|<>`

// Policy violation messages, in the order they are reported.
const (
	MsgTooShort    = "password must be at least 8 characters long"
	MsgTooLong     = "password must be at most 72 bytes long"
	MsgNoUppercase = "password must contain at least one uppercase letter"
	MsgNoLowercase = "password must contain at least one lowercase letter"
	MsgNoDigit     = "password must contain at least one number"
	MsgNoSymbol    = "password must contain at least one special character"
)

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost      int
	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher constructs a Hasher. Costs outside bcrypt's range fall back to DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost reports the configured work factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a randomly salted bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("crypto: hash password: %w", err)
	}
	return string(out), nil
}

// Verify reports whether password matches the stored hash.
// Any failure, including a corrupt hash, is reported as a mismatch.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnVerify spends the same effort as Verify against a throwaway hash.
// Login calls it when the email is unknown so response times match.
func (h *Hasher) BurnVerify(password string) {
	h.dummyOnce.Do(func() {
		seed, err := RandBytes(16)
		if err != nil {
			return
		}
		h.dummy, _ = bcrypt.GenerateFromPassword(seed, h.cost)
	})
	if h.dummy == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}

// IsAcceptableFormat reports whether password satisfies the policy.
func IsAcceptableFormat(password string) bool {
	return len(ValidationErrors(password)) == 0
}

// ValidationErrors lists every policy rule password breaks.
func ValidationErrors(password string) []string {
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(symbols, r):
			symbol = true
		}
	}

	var out []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		out = append(out, MsgTooShort)
	}
	if len(password) > MaxPasswordLength {
		out = append(out, MsgTooLong)
	}
	if !upper {
		out = append(out, MsgNoUppercase)
	}
	if !lower {
		out = append(out, MsgNoLowercase)
	}
	if !digit {
		out = append(out, MsgNoDigit)
	}
	if !symbol {
		out = append(out, MsgNoSymbol)
	}
	return out
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}
