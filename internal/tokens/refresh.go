package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"
)

const (
	RefreshLifetime = 7 * 24 * time.Hour
	refreshSize     = 32
)

// RefreshGenerator produces opaque refresh tokens: 32 random bytes, standard base64.
type RefreshGenerator struct {
	Rand io.Reader
}

func (g RefreshGenerator) Generate() (string, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}

	random := make([]byte, refreshSize)
	if _, err := io.ReadFull(src, random); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.StdEncoding.EncodeToString(random), nil
}

// RefreshExpiry is the instant at which a token issued at issuedAt stops being valid.
func RefreshExpiry(issuedAt time.Time) time.Time {
	return issuedAt.Add(RefreshLifetime)
}
