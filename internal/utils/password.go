package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash from a plaintext password. The cost is
// bcrypt's default; stored hashes embed it, so it can change without
// invalidating existing credentials.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPasswordHash reports whether plain matches the stored bcrypt hash.
func CheckPasswordHash(plain, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
}
