package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const singleUseTokenBytes = 32

// SingleUseToken is a freshly minted out-of-band token. Plain goes to the user
// exactly once; only Hash is persisted.
type SingleUseToken struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}

// IssueSingleUseToken mints a random token. A zero ttl yields a zero
// ExpiresAt, meaning the token does not expire on its own.
func IssueSingleUseToken(now time.Time, ttl time.Duration) (SingleUseToken, error) {
	raw := make([]byte, singleUseTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return SingleUseToken{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	plain := hex.EncodeToString(raw)
	tok := SingleUseToken{Plain: plain, Hash: HashToken(plain)}
	if ttl > 0 {
		tok.ExpiresAt = now.Add(ttl)
	}
	return tok, nil
}

// HashToken returns the hex SHA-256 digest stored in place of a token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
