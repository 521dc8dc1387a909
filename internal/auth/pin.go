package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const MinPINLength = 4

var (
	ErrInvalidPIN  = errors.New("invalid manager PIN")
	ErrPINTooShort = fmt.Errorf("manager PIN must be at least %d digits", MinPINLength)
)

// PINVerifier checks a manager PIN and returns the manager's username.
type PINVerifier interface {
	VerifyPIN(ctx context.Context, pin string) (string, error)
}

// ValidatePINInput is the local check run before a PIN is sent anywhere.
func ValidatePINInput(pin string) error {
	if len(strings.TrimSpace(pin)) < MinPINLength {
		return ErrPINTooShort
	}
	return nil
}

// LocalPINVerifier verifies against a single bcrypt hashed PIN from
// configuration. It stands in for the Auth service on standalone terminals.
type LocalPINVerifier struct {
	username string
	hash     []byte
}

// NewLocalPINVerifier accepts either a plain PIN, which is hashed on the
// spot, or an existing bcrypt hash.
func NewLocalPINVerifier(username string, pin string) (*LocalPINVerifier, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return nil, errors.New("manager PIN is not configured")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = "manager"
	}
	if isPasswordHash(pin) {
		return &LocalPINVerifier{username: username, hash: []byte(pin)}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash manager PIN: %w", err)
	}
	return &LocalPINVerifier{username: username, hash: hash}, nil
}

func (v *LocalPINVerifier) VerifyPIN(_ context.Context, pin string) (string, error) {
	if err := ValidatePINInput(pin); err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword(v.hash, []byte(strings.TrimSpace(pin))) != nil {
		return "", ErrInvalidPIN
	}
	return v.username, nil
}

// ValidatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func ValidatePINStrength(pin string) error {
	known := map[string]bool{
		"1234": true, "4321": true, "0000": true, "1111": true, "1212": true,
		"123456": true, "654321": true, "000000": true, "111111": true,
		"121212": true, "112233": true, "123123": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}

	return nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
