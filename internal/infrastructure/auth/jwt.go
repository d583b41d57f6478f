package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/tillclose/internal/domain"
)

// Issuer is the issuer claim of operator tokens.
const Issuer = "tillclose"

// Claims represents the JWT claims of an operator token. The operator id is
// carried in the subject claim.
type Claims struct {
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Operator converts the claims into the authenticated operator.
func (c *Claims) Operator() *domain.Operator {
	return &domain.Operator{
		ID:   c.Subject,
		Name: c.Name,
		Role: c.Role,
	}
}

// JWTManager manages JWT token creation and validation
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Generate generates a new JWT token for an operator
func (m *JWTManager) Generate(op *domain.Operator) (string, error) {
	if op == nil || op.ID == "" {
		return "", fmt.Errorf("%w: operator id is required", domain.ErrInvalidToken)
	}
	if !op.Role.IsValid() {
		return "", domain.ErrInsufficientRole
	}

	now := time.Now()
	claims := Claims{
		Name: op.Name,
		Role: op.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.ID,
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify verifies a JWT token and returns the claims
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithIssuer(Issuer),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || !claims.Role.IsValid() {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
