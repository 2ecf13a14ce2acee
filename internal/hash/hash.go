package hash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyPassword   = errors.New("password is empty")
	ErrPasswordTooLong = bcrypt.ErrPasswordTooLong
)

// Bcrypt hashes and verifies passwords. The salt lives inside the hash,
// so Verify needs nothing besides the stored value.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) cost() int {
	if b.Cost < bcrypt.MinCost || b.Cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b Bcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost())
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}

// Verify reports whether password matches hash. Malformed hashes count as a mismatch.
func (b Bcrypt) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
