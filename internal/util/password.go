package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength   = 16
	hashLength   = 32
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4

	DefaultPasswordMinLength = 8

	nativeHashPrefix = "argon2id$"
)

func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

func HashPassword(password string, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, hashLength), nil
}

func DerivePassword(password string) (hash, salt []byte, err error) {
	salt, err = GenerateSalt()
	if err != nil {
		return nil, nil, err
	}
	hash, err = HashPassword(password, salt)
	if err != nil {
		return nil, nil, err
	}
	return hash, salt, nil
}

func VerifyPassword(password string, salt, expectedHash []byte) bool {
	if len(password) == 0 || len(salt) == 0 || len(expectedHash) == 0 {
		return false
	}
	candidate, err := HashPassword(password, salt)
	if err != nil {
		return false
	}
	if len(candidate) != len(expectedHash) {
		return false
	}
	return subtle.ConstantTimeCompare(candidate, expectedHash) == 1
}

// EncodePrimaryHash renders a primary credential as a single string so it can
// travel through an export file and later be checked by VerifyLegacyHash.
func EncodePrimaryHash(hash, salt []byte) string {
	if len(hash) == 0 || len(salt) == 0 {
		return ""
	}
	return nativeHashPrefix + base64.StdEncoding.EncodeToString(salt) + "$" + base64.StdEncoding.EncodeToString(hash)
}

// PasswordRules carries the context a password is validated against.
type PasswordRules struct {
	MinLength int
	Username  string
}

// PasswordError lists every rule a candidate password broke.
type PasswordError struct {
	Problems []string
}

func (e *PasswordError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func ValidatePassword(password string, rules PasswordRules) error {
	minLength := rules.MinLength
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}

	var problems []string
	if len([]rune(password)) < minLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minLength))
	}
	if password != "" && isAllDigits(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	if username := strings.ToLower(strings.TrimSpace(rules.Username)); username != "" {
		lowered := strings.ToLower(password)
		if lowered == username || (len(username) >= 3 && strings.Contains(lowered, username)) {
			problems = append(problems, "The password is too similar to the username.")
		}
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		problems = append(problems, "This password is too common.")
	}

	if len(problems) > 0 {
		return &PasswordError{Problems: problems}
	}
	return nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"password12": {},
	"12345678":   {},
	"123456789":  {},
	"1234567890": {},
	"qwerty123":  {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"sunshine":   {},
	"princess":   {},
	"football":   {},
	"baseball":   {},
	"welcome1":   {},
	"letmein1":   {},
	"abc12345":   {},
	"admin123":   {},
	"trustno1":   {},
	"superman":   {},
	"starwars":   {},
	"whatever":   {},
	"passw0rd":   {},
	"changeme":   {},
}
