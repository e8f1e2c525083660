package auth

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt work factor the Password Hasher (C5) uses. The
// spec requires cost >= 12; bcrypt's DefaultCost (10) is too cheap for an
// interactive-login credential store.
const PasswordCost = 12

// HashPassword produces an adaptive, salted digest for storage.
func HashPassword(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether plain matches digest. Malformed digests
// and mismatches both return false rather than an error, so callers can't
// accidentally branch on a parse failure versus a wrong password.
func VerifyPassword(plain, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	return err == nil
}
