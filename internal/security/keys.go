package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
)

// KeyFile names an RSA private key on disk together with its kid.
type KeyFile struct {
	Kid  string
	Path string
}

type RSAKey struct {
	Kid     string
	Private *rsa.PrivateKey
}

// KeyManager holds the signing key and, during rotation, the key that will
// replace it. Both public halves are accepted when verifying.
type KeyManager struct {
	Active *RSAKey
	Next   *RSAKey
	byKid  map[string]*rsa.PublicKey
}

func parsePrivateKeyPEM(b []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("invalid PEM")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("not RSA key")
		}
		return rk, nil
	default:
		return nil, errors.New("unsupported key type: " + block.Type)
	}
}

func loadKey(f KeyFile) (*RSAKey, error) {
	if f.Kid == "" {
		return nil, fmt.Errorf("key %s: empty kid", f.Path)
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	pk, err := parsePrivateKeyPEM(b)
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", f.Kid, err)
	}
	return &RSAKey{Kid: f.Kid, Private: pk}, nil
}

// LoadKeyManager reads the active key and, when next.Path is set, the next one.
func LoadKeyManager(active, next KeyFile) (*KeyManager, error) {
	a, err := loadKey(active)
	if err != nil {
		return nil, err
	}
	km := &KeyManager{Active: a, byKid: map[string]*rsa.PublicKey{a.Kid: &a.Private.PublicKey}}
	if next.Path == "" {
		return km, nil
	}
	n, err := loadKey(next)
	if err != nil {
		return nil, err
	}
	if n.Kid == a.Kid {
		return nil, errors.New("active and next keys share a kid")
	}
	km.Next = n
	km.byKid[n.Kid] = &n.Private.PublicKey
	return km, nil
}

// JWK is the RSA subset of RFC 7517 that verifiers of our tokens need.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"` // base64url modulus
	E   string `json:"e"` // base64url exponent
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

func (km *KeyManager) JWKS() JWKS {
	out := JWKS{Keys: []JWK{}}
	for _, k := range []*RSAKey{km.Active, km.Next} {
		if k == nil {
			continue
		}
		pub := k.Private.PublicKey
		out.Keys = append(out.Keys, JWK{
			Kty: "RSA",
			Kid: k.Kid,
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	return out
}

func (km *KeyManager) PublicByKid(kid string) (*rsa.PublicKey, bool) {
	pk, ok := km.byKid[kid]
	return pk, ok
}
