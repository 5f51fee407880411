package util

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// LegacyHashAlgorithm names the format a legacy hash string was written in.
type LegacyHashAlgorithm string

const (
	LegacyPBKDF2SHA256 LegacyHashAlgorithm = "pbkdf2_sha256"
	LegacyPBKDF2SHA1   LegacyHashAlgorithm = "pbkdf2_sha1"
	LegacyArgon2       LegacyHashAlgorithm = "argon2"
	LegacyBcryptSHA256 LegacyHashAlgorithm = "bcrypt_sha256"
	LegacyBcrypt       LegacyHashAlgorithm = "bcrypt"
	LegacyNative       LegacyHashAlgorithm = "argon2id"
	LegacyUnknown      LegacyHashAlgorithm = ""
)

// DetectLegacyAlgorithm reads the algorithm prefix of an encoded hash.
func DetectLegacyAlgorithm(encoded string) LegacyHashAlgorithm {
	prefix, _, found := strings.Cut(encoded, "$")
	if !found {
		return LegacyUnknown
	}
	switch alg := LegacyHashAlgorithm(prefix); alg {
	case LegacyPBKDF2SHA256, LegacyPBKDF2SHA1, LegacyArgon2, LegacyBcryptSHA256, LegacyBcrypt, LegacyNative:
		return alg
	}
	return LegacyUnknown
}

// VerifyLegacyHash checks a plaintext password against a hash carried over
// from a previous deployment. Unknown or malformed encodings never match.
func VerifyLegacyHash(password, encoded string) bool {
	if password == "" || encoded == "" {
		return false
	}
	switch DetectLegacyAlgorithm(encoded) {
	case LegacyPBKDF2SHA256:
		return verifyPBKDF2(password, encoded, sha256.New, sha256.Size)
	case LegacyPBKDF2SHA1:
		return verifyPBKDF2(password, encoded, sha1.New, sha1.Size)
	case LegacyArgon2:
		return verifyArgon2(password, encoded)
	case LegacyBcryptSHA256:
		digest := sha256.Sum256([]byte(password))
		return verifyBcrypt(hex.EncodeToString(digest[:]), strings.TrimPrefix(encoded, string(LegacyBcryptSHA256)+"$"))
	case LegacyBcrypt:
		return verifyBcrypt(password, strings.TrimPrefix(encoded, string(LegacyBcrypt)+"$"))
	case LegacyNative:
		return verifyNative(password, encoded)
	}
	return false
}

// pbkdf2_<digest>$<iterations>$<salt>$<base64 key>
func verifyPBKDF2(password, encoded string, h func() hash.Hash, keyLen int) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(expected) == 0 {
		return false
	}
	if len(expected) != keyLen {
		keyLen = len(expected)
	}
	candidate := pbkdf2.Key([]byte(password), []byte(parts[2]), iterations, keyLen, h)
	return subtle.ConstantTimeCompare(candidate, expected) == 1
}

// argon2$argon2id$v=19$m=<kib>,t=<iterations>,p=<threads>$<salt>$<key>
// salt and key are unpadded base64.
func verifyArgon2(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false
	}
	variant := parts[1]
	if variant != "argon2id" && variant != "argon2i" {
		return false
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return false
	}

	var memory, iterations uint64
	var threads uint64
	for _, pair := range strings.Split(parts[3], ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return false
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil || n == 0 {
			return false
		}
		switch key {
		case "m":
			memory = n
		case "t":
			iterations = n
		case "p":
			if n > 255 {
				return false
			}
			threads = n
		default:
			return false
		}
	}
	if memory == 0 || iterations == 0 || threads == 0 {
		return false
	}

	salt, err := decodeUnpadded(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}
	expected, err := decodeUnpadded(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	var candidate []byte
	if variant == "argon2id" {
		candidate = argon2.IDKey([]byte(password), salt, uint32(iterations), uint32(memory), uint8(threads), uint32(len(expected)))
	} else {
		candidate = argon2.Key([]byte(password), salt, uint32(iterations), uint32(memory), uint8(threads), uint32(len(expected)))
	}
	return subtle.ConstantTimeCompare(candidate, expected) == 1
}

func verifyBcrypt(password, encoded string) bool {
	if !strings.HasPrefix(encoded, "$2") {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
}

// argon2id$<base64 salt>$<base64 key>, written by EncodePrimaryHash.
func verifyNative(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	return VerifyPassword(password, salt, expected)
}

func decodeUnpadded(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
