package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password; out-of-range costs fall back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// SecretMatches reports whether plain matches a stored client secret hash. Empty inputs never match.
func SecretMatches(hashed, plain string) bool {
	if hashed == "" || plain == "" {
		return false
	}
	return ComparePassword(hashed, plain) == nil
}
