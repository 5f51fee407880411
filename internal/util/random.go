package util

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateRandomPassword returns a password drawn uniformly from an alphabet
// without look-alike characters. Used for accounts created by an import that
// only carry legacy hashes.
func GenerateRandomPassword(length int) (string, error) {
	if length <= 0 {
		length = 24
	}
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(passwordAlphabet[n.Int64()])
	}
	return builder.String(), nil
}
