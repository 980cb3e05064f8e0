// Package identity consumes the external identity provider. It inspects the
// provider's JWTs and adapts them into sessions; it does not issue credentials
// of its own.
package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/openshelf/openshelf"
)

// ErrKeyNotFound is returned when a token names a signing key the key store
// does not hold.
var ErrKeyNotFound = &openshelf.Error{
	Code: openshelf.EUnauthorized,
	Msg:  "signing key not found",
}

// KeyStore maps a key ID to its shared signing secret.
type KeyStore interface {
	Key(kid string) ([]byte, error)
}

// KeyStoreFunc is a convenience for kv stores that are just a function.
type KeyStoreFunc func(kid string) ([]byte, error)

// Key returns the key for kid.
func (f KeyStoreFunc) Key(kid string) ([]byte, error) {
	return f(kid)
}

// Claims are the token claims this core relies on.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"uid"`
}

// TokenParser parses and validates identity-provider tokens.
type TokenParser struct {
	keyStore KeyStore
	parser   *jwt.Parser
}

// NewTokenParser returns a parser that only accepts HS256 signatures.
func NewTokenParser(store KeyStore) *TokenParser {
	return &TokenParser{
		keyStore: store,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		),
	}
}

// Parse validates the raw token and converts it into a session.
func (t *TokenParser) Parse(raw string) (*openshelf.Session, error) {
	claims := &Claims{}
	_, err := t.parser.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		kid, _ := tok.Header["kid"].(string)
		return t.keyStore.Key(kid)
	})
	if err != nil {
		return nil, &openshelf.Error{
			Code: openshelf.EUnauthorized,
			Msg:  "invalid session token",
			Err:  err,
		}
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, &openshelf.Error{
			Code: openshelf.EUnauthorized,
			Msg:  "session token carries no usable user id",
			Err:  err,
		}
	}

	now := time.Now()
	session := &openshelf.Session{
		ID:             uuid.New(),
		UserID:         userID,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if claims.IssuedAt != nil {
		session.CreatedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}
