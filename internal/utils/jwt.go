package utils

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
)

// IdentityClaims is the body of an identity token. Access carries the
// organization claims payload once it has been published for the user.
type IdentityClaims struct {
	Email  string               `json:"email"`
	Name   string               `json:"name,omitempty"`
	Access *authz.ClaimsPayload `json:"access,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the caller described by the token.
func (c *IdentityClaims) Identity() authz.Identity {
	return authz.Identity{UserID: c.Subject, Email: c.Email, Name: c.Name}
}

// TokenIssuer signs and verifies identity tokens. With a private key it uses
// RS256, otherwise HS256 with the shared secret.
type TokenIssuer struct {
	secret []byte
	key    *rsa.PrivateKey
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, key *rsa.PrivateKey, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{
		secret: []byte(secret),
		key:    key,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (t *TokenIssuer) method() jwt.SigningMethod {
	if t.key != nil {
		return jwt.SigningMethodRS256
	}
	return jwt.SigningMethodHS256
}

// Issue signs a token for id embedding access, which may be nil.
func (t *TokenIssuer) Issue(id authz.Identity, access *authz.ClaimsPayload) (string, error) {
	now := t.now()
	claims := IdentityClaims{
		Email:  id.Email,
		Name:   id.Name,
		Access: access,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(t.method(), claims)
	if t.key != nil {
		return token.SignedString(t.key)
	}
	return token.SignedString(t.secret)
}

// Verify parses raw and checks signature, expiry and issuer. Every failure is
// an authentication error.
func (t *TokenIssuer) Verify(raw string) (*IdentityClaims, error) {
	if raw == "" {
		return nil, apperr.Unauthenticated("missing identity token")
	}

	claims := &IdentityClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{t.method().Alg()}))
	token, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if t.key != nil {
			return &t.key.PublicKey, nil
		}
		return t.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, apperr.Unauthenticated("identity token has expired")
		}
		return nil, apperr.Unauthenticated("invalid identity token")
	}
	if !token.Valid {
		return nil, apperr.Unauthenticated("invalid identity token")
	}
	if t.issuer != "" && !claims.VerifyIssuer(t.issuer, true) {
		return nil, apperr.Unauthenticated("unexpected token issuer")
	}
	if claims.Subject == "" {
		return nil, apperr.Unauthenticated("identity token has no subject")
	}
	return claims, nil
}
