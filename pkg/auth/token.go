package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the number of characters in a confirmation code
	CodeLength = 12
	// codeAlphabet avoids characters that are easily confused when typed from an email
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// Issuer is the iss claim placed in every access token
	Issuer = "critique"
)

var (
	// ErrCodeMismatch is returned when a confirmation code does not match the stored hash
	ErrCodeMismatch = errors.New("confirmation code does not match")
	// ErrCodeExpired is returned when a confirmation code is past its expiry
	ErrCodeExpired = errors.New("confirmation code has expired")
	// ErrInvalidToken is returned for malformed, expired or foreign access tokens
	ErrInvalidToken = errors.New("invalid or expired token")
)

// CodeGenerator issues one-time confirmation codes and verifies them against
// their stored bcrypt hash.
type CodeGenerator struct {
	ttl  time.Duration
	cost int
	now  func() time.Time
}

// NewCodeGenerator creates a generator whose codes expire after ttl
func NewCodeGenerator(ttl time.Duration) *CodeGenerator {
	return &CodeGenerator{
		ttl:  ttl,
		cost: bcrypt.DefaultCost,
		now:  time.Now,
	}
}

// Generate returns a fresh code, the hash to persist, and its expiry
func (g *CodeGenerator) Generate() (code string, hash string, expiresAt time.Time, err error) {
	randomBytes := make([]byte, CodeLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	buf := make([]byte, CodeLength)
	for i, b := range randomBytes {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	code = string(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), g.cost)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to hash confirmation code: %w", err)
	}

	return code, string(hashed), g.now().Add(g.ttl), nil
}

// Verify checks a submitted code against the stored hash and expiry
func (g *CodeGenerator) Verify(code, hash string, expiresAt *time.Time) error {
	if hash == "" || code == "" {
		return ErrCodeMismatch
	}
	if expiresAt != nil && g.now().After(*expiresAt) {
		return ErrCodeExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return ErrCodeMismatch
	}
	return nil
}

// Claims are the JWT claims carried by an access token
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the numeric user id stored in the subject claim
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

// TokenIssuer signs and verifies HS256 access tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer with the signing secret and token lifetime
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs an access token identifying the user
func (ti *TokenIssuer) Issue(user *User) (string, error) {
	now := ti.now()
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an access token
func (ti *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
