package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies identity tokens. It signs with HS256 unless
// a KeyManager is supplied, in which case tokens are RS256 with a kid header.
type TokenService struct {
	secret []byte
	keys   *KeyManager
	ttl    time.Duration
	now    func() time.Time
}

// DefaultTTL applies when a non-positive ttl is passed to a constructor.
const DefaultTTL = time.Hour

func NewHS256(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: orDefault(ttl), now: time.Now}
}

func NewRS256(km *KeyManager, ttl time.Duration) *TokenService {
	return &TokenService{keys: km, ttl: orDefault(ttl), now: time.Now}
}

func orDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

// Keys returns the RSA key manager, nil in HS256 mode.
func (s *TokenService) Keys() *KeyManager { return s.keys }

func (s *TokenService) Issue(uid, email string) (string, error) {
	jti, err := NewID()
	if err != nil {
		return "", err
	}
	now := s.now()
	c := Claims{
		UID: uid, Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Subject:   uid,
		},
	}
	if s.keys != nil {
		t := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
		t.Header["kid"] = s.keys.Active.Kid
		return t.SignedString(s.keys.Active.Private)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Parse verifies signature and expiry and returns the claims.
func (s *TokenService) Parse(token string) (*Claims, error) {
	method := "HS256"
	if s.keys != nil {
		method = "RS256"
	}
	t, err := jwt.ParseWithClaims(token, &Claims{}, s.keyfunc,
		jwt.WithValidMethods([]string{method}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	if c.UID == "" {
		c.UID = c.Subject
	}
	return c, nil
}

func (s *TokenService) keyfunc(t *jwt.Token) (interface{}, error) {
	if s.keys == nil {
		return s.secret, nil
	}
	kid, _ := t.Header["kid"].(string)
	if pk, ok := s.keys.PublicByKid(kid); ok {
		return pk, nil
	}
	return nil, errors.New("no key by kid")
}

// NewID returns a random url-safe identifier, used as the token jti.
func NewID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
