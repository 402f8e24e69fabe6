// Package jwttoken issues and validates the department dashboard tokens.
// Every request carries one; the department claim decides queue visibility
// and which actions the workflow will accept.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "losflow/pkg/domain"
	dErrors "losflow/pkg/domain-errors"
)

// Claims represents the JWT claims for department dashboard tokens.
type Claims struct {
	Department string `json:"department"`
	Actor      string `json:"actor"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateToken issues a token for one officer acting on behalf of a
// department.
func (s *JWTService) GenerateToken(dept id.Department, actor string, expiresIn time.Duration) (string, error) {
	if !dept.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown department")
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Department: dept.String(),
		Actor:      actor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			Subject:   actor,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if _, err := id.ParseDepartment(claims.Department); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no valid department")
	}
	return claims, nil
}
