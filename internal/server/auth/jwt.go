package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/verdantlabs/accountd/internal/common"
)

// Claims carries the identity and the authorization snapshot embedded in an
// access token. Roles and privileges reflect the account state at issuance
// time; they are re-resolved on the next login or refresh, never from the
// token itself.
type Claims struct {
	jwt.RegisteredClaims
	Email      string   `json:"email"`
	Roles      []string `json:"roles,omitempty"`
	Privileges []string `json:"privileges,omitempty"`
}

// GenerateToken builds and signs an HS256 access token. The subject is the
// account ID; issuer, signing key, and validity come from process-wide
// configuration loaded once at startup. The now parameter is supplied by the
// caller's clock.
func GenerateToken(accountID, email string, roles, privileges []string, secretKey []byte, issuer string, now time.Time, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Email:      email,
		Roles:      roles,
		Privileges: privileges,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies the signature and time bounds of an access token and
// returns its claims. Expired tokens yield common.ErrTokenExpired; anything
// else that fails verification yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
