package webhook

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of signed bearer tokens.
const DefaultTokenTTL = 5 * time.Minute

// Signer issues short-lived HS256 bearer tokens so the receiving endpoint can
// authenticate the sender.
type Signer struct {
	Key      []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// NewSigner returns a signer for key. The key must not be empty.
func NewSigner(key []byte, issuer, audience string) (*Signer, error) {
	if len(key) == 0 {
		return nil, errors.New("webhook: signing key is empty")
	}
	return &Signer{Key: key, Issuer: issuer, Audience: audience, TTL: DefaultTokenTTL}, nil
}

// Token issues a fresh token.
func (s *Signer) Token() (string, error) {
	now := time.Now()
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	claims := jwt.RegisteredClaims{
		Issuer:    s.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if s.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Key)
}
