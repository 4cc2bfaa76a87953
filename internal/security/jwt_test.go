package security_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tazhibayda/places-service/internal/security"
)

func writeTempRSA(t *testing.T) string {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "rsa.pem")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := pem.Encode(f, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)}); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHS256_IssueParse(t *testing.T) {
	ts := security.NewHS256("secret", time.Hour)

	tok, err := ts.Issue("u1", "ann@x.com")
	if err != nil {
		t.Fatal(err)
	}
	c, err := ts.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.UID != "u1" || c.Email != "ann@x.com" {
		t.Fatalf("claims mismatch: %#v", c)
	}
	if got := c.ExpiresAt.Sub(c.IssuedAt.Time); got != time.Hour {
		t.Fatalf("ttl = %v, want 1h", got)
	}
}

func TestNonPositiveTTLUsesDefault(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Minute} {
		ts := security.NewHS256("secret", ttl)
		if ts.TTL() != security.DefaultTTL {
			t.Fatalf("ttl %v: got %v", ttl, ts.TTL())
		}
		tok, _ := ts.Issue("u1", "ann@x.com")
		if _, err := ts.Parse(tok); err != nil {
			t.Fatalf("ttl %v: fresh token rejected: %v", ttl, err)
		}
	}
}

func TestHS256_FreshTokenEachIssue(t *testing.T) {
	ts := security.NewHS256("secret", time.Hour)
	a, _ := ts.Issue("u1", "ann@x.com")
	b, _ := ts.Issue("u1", "ann@x.com")
	if a == b {
		t.Fatal("two issues produced the same token")
	}
}

func TestHS256_RejectsWrongSecretAndExpired(t *testing.T) {
	tok, _ := security.NewHS256("secret", time.Hour).Issue("u1", "ann@x.com")
	if _, err := security.NewHS256("other", time.Hour).Parse(tok); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}

	past := time.Now().Add(-2 * time.Hour)
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, security.Claims{
		UID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	if _, err := security.NewHS256("secret", time.Hour).Parse(expired); err == nil {
		t.Fatal("expired token was accepted")
	}
}

func TestRS256_JWKSRoundTrip(t *testing.T) {
	km, err := security.LoadKeyManager(
		security.KeyFile{Kid: "kidA", Path: writeTempRSA(t)},
		security.KeyFile{Kid: "kidN", Path: writeTempRSA(t)},
	)
	if err != nil {
		t.Fatal(err)
	}
	ts := security.NewRS256(km, time.Minute)

	tok, err := ts.Issue("u1", "u@example.com")
	if err != nil {
		t.Fatal(err)
	}
	c, err := ts.Parse(tok)
	if err != nil {
		t.Fatalf("invalid token: %v", err)
	}
	if c.UID != "u1" || c.Email != "u@example.com" {
		t.Fatalf("claims mismatch: %#v", c)
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(tok, &security.Claims{})
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Header["kid"] != "kidA" {
		t.Fatalf("kid = %v", parsed.Header["kid"])
	}
	if n := len(km.JWKS().Keys); n != 2 {
		t.Fatalf("jwks keys = %d, want 2", n)
	}
}

func TestRS256_RejectsHS256Token(t *testing.T) {
	km, err := security.LoadKeyManager(security.KeyFile{Kid: "kidA", Path: writeTempRSA(t)}, security.KeyFile{})
	if err != nil {
		t.Fatal(err)
	}
	hs, _ := security.NewHS256("secret", time.Hour).Issue("u1", "ann@x.com")
	if _, err := security.NewRS256(km, time.Hour).Parse(hs); err == nil {
		t.Fatal("HS256 token accepted in RS256 mode")
	}
}

func TestLoadKeyManager_Errors(t *testing.T) {
	path := writeTempRSA(t)
	if _, err := security.LoadKeyManager(security.KeyFile{Kid: "a", Path: path}, security.KeyFile{Kid: "a", Path: path}); err == nil {
		t.Fatal("duplicate kid accepted")
	}
	bad := filepath.Join(t.TempDir(), "bad.pem")
	_ = os.WriteFile(bad, []byte("not a key"), 0o600)
	_, err := security.LoadKeyManager(security.KeyFile{Kid: "a", Path: bad}, security.KeyFile{})
	if err == nil || !strings.Contains(err.Error(), "invalid PEM") {
		t.Fatalf("err = %v", err)
	}
}
