// Package authtest provides signing keys for tests that need real tokens.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/arena-coordinator/internal/auth"
)

// Issuer signs RS256 tokens whose public key is written to PublicKeyPath.
type Issuer struct {
	PublicKeyPath  string
	PrivateKeyPath string
	Verifier       *auth.Verifier
	key            *rsa.PrivateKey
}

// NewIssuer generates a key pair and writes both halves to a temp dir.
func NewIssuer(t *testing.T) *Issuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	dir := t.TempDir()
	path := filepath.Join(dir, "jwt.pub")
	if err := os.WriteFile(path, pemData, 0o600); err != nil {
		t.Fatalf("write public key: %v", err)
	}
	privatePath := filepath.Join(dir, "jwt.key")
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}

	verifier, err := auth.NewVerifier(pemData, []string{"RS256"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	return &Issuer{PublicKeyPath: path, PrivateKeyPath: privatePath, Verifier: verifier, key: key}
}

// Token signs a token for playerID valid for one hour.
func (i *Issuer) Token(t *testing.T, playerID, username string) string {
	t.Helper()

	token, err := auth.Sign(jwt.SigningMethodRS256, i.key, playerID, username, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// Expired signs a token that expired a minute ago.
func (i *Issuer) Expired(t *testing.T, playerID string) string {
	t.Helper()

	token, err := auth.Sign(jwt.SigningMethodRS256, i.key, playerID, "", -time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
