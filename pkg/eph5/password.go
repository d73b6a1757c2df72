package eph5

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// KeyLength is the length in bytes of the key Initialize expects,
// matching ARCFOUR's maximum key size so the whole derived key is
// used to seed the permutation and keystream cipher.
const KeyLength = 256

// ExpandPassword derives a KeyLength-byte key from a password using
// 1000 rounds of PBKDF2-HMAC-SHA256, with the password itself reused
// as the salt, matching the reference implementation's key schedule.
func ExpandPassword(password string) []byte {
	return pbkdf2.Key([]byte(password), []byte(password), 1000, KeyLength, sha256.New)
}
