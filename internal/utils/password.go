package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns the bcrypt hash stored on password accounts; OAuth
// accounts carry an empty hash and never go through this path.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a stored hash against a login attempt in
// constant time.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
