package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var dummyHashes sync.Map // cost -> []byte

// VerifyAgainstDummy spends the same bcrypt work as VerifyPassword for a
// user that does not exist. It always reports false.
func VerifyAgainstDummy(plain string, cost int) bool {
	h, ok := dummyHashes.Load(cost)
	if !ok {
		generated, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
		if err != nil {
			return false
		}
		h, _ = dummyHashes.LoadOrStore(cost, generated)
	}
	_ = bcrypt.CompareHashAndPassword(h.([]byte), []byte(plain))
	return false
}
