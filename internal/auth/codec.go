package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Codec errors. Both surface as unauthenticated at the verifier.
var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
)

// Claims is the payload of a bearer token.
type Claims struct {
	UserID    string           `json:"userId"`
	Purpose   string           `json:"type"`
	TokenHash string           `json:"token"`
	ExpiresAt time.Time        `json:"expires"`
	Issuer    string           `json:"iss,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
}

// Valid satisfies jwt.Claims. Expiry and revocation belong to the verifier,
// so the codec accepts any well-signed payload.
func (c *Claims) Valid() error {
	return nil
}

// Codec signs and parses HS256 bearer tokens.
type Codec struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewCodec creates a codec with the server-held signing key.
func NewCodec(secret, issuer string) *Codec {
	return &Codec{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Encode signs the claims. Issuer and issued-at are filled when empty.
func (c *Codec) Encode(claims Claims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = c.issuer
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(time.Now())
	}
	claims.ExpiresAt = claims.ExpiresAt.UTC()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and returns the claims. It does not look at
// expiry or revocation.
func (c *Codec) Decode(bearer string) (*Claims, error) {
	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(bearer, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.Purpose == "" || claims.TokenHash == "" || claims.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return claims, nil
}
