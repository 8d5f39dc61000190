package auth

import "golang.org/x/crypto/bcrypt"

// HashCredential hashes a plaintext operator credential with the given cost.
func HashCredential(secret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareCredential verifies a credential against its stored bcrypt hash.
func CompareCredential(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
