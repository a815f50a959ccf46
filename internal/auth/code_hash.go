package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// HashCode hashes an OTP code irreversibly before storage. The plaintext
// code is never persisted.
func HashCode(code string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckCode compares a candidate code against a stored hash
func CheckCode(code, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	return err == nil
}
