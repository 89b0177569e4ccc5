// Package auth issues and validates identity tokens: short HS256 JWTs whose
// subject is the hex form of a pseudonymous identity.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "confessions"

// Claims carries only registered claims; Subject holds the identity.
type Claims struct {
	jwt.RegisteredClaims
}

func GenerateToken(id models.IdentityID, secretKey []byte, validity time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	})

	return token.SignedString(secretKey)
}

// GetIdentityFromToken validates tokenString and returns its identity.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// validation yields common.ErrInvalidToken.
func GetIdentityFromToken(tokenString string, secretKey []byte) (models.IdentityID, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.IdentityID{}, common.ErrTokenExpired
		}
		return models.IdentityID{}, common.ErrInvalidToken
	}
	if !token.Valid {
		return models.IdentityID{}, common.ErrInvalidToken
	}

	id, err := models.ParseIdentityID(claims.Subject)
	if err != nil {
		return models.IdentityID{}, common.ErrInvalidToken
	}
	return id, nil
}
