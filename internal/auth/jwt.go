package auth

import (
	"crypto"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents JWT claims issued to players by the external identity service.
type Claims struct {
	Username string  `json:"username,omitempty"`
	Picture  *string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// PlayerID returns the subject, which is the player identifier.
func (c *Claims) PlayerID() string {
	return c.Subject
}

// DisplayName falls back to the player id when no username was issued.
func (c *Claims) DisplayName() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Subject
}

// Verifier validates tokens against a PEM encoded public key.
type Verifier struct {
	key        crypto.PublicKey
	algorithms []string
}

// NewVerifier builds a verifier from PEM key material.
// Only the listed algorithms are accepted.
func NewVerifier(pemData []byte, algorithms []string) (*Verifier, error) {
	if len(algorithms) == 0 {
		return nil, errors.New("no signing algorithms configured")
	}

	var (
		key crypto.PublicKey
		err error
	)
	switch jwt.GetSigningMethod(algorithms[0]).(type) {
	case *jwt.SigningMethodECDSA:
		key, err = jwt.ParseECPublicKeyFromPEM(pemData)
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		key, err = jwt.ParseRSAPublicKeyFromPEM(pemData)
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithms[0])
	}
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Verifier{key: key, algorithms: slices.Clone(algorithms)}, nil
}

// LoadVerifier reads the public key at path.
func LoadVerifier(path string, algorithms []string) (*Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key %q: %w", path, err)
	}
	return NewVerifier(data, algorithms)
}

// Verify parses and validates a token string.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods(v.algorithms), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}

// Sign issues a token for a player. It is used by the dev token command and tests.
func Sign(method jwt.SigningMethod, key crypto.PrivateKey, playerID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(method, claims).SignedString(key)
}

// LoadSigningKey reads a PEM private key matching the algorithm family of alg.
func LoadSigningKey(path, alg string) (jwt.SigningMethod, crypto.PrivateKey, error) {
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, nil, fmt.Errorf("unknown signing algorithm %q", alg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read signing key: %w", err)
	}

	var key crypto.PrivateKey
	switch method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		key, err = jwt.ParseRSAPrivateKeyFromPEM(data)
	case *jwt.SigningMethodECDSA:
		key, err = jwt.ParseECPrivateKeyFromPEM(data)
	default:
		return nil, nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse signing key: %w", err)
	}
	return method, key, nil
}
