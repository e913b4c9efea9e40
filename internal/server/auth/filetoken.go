// Package auth issues and verifies the signed tokens embedded in file
// location URLs.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// FileClaims identify one content entry of one link. The registered ID (jti)
// is what the server records to make the token single-use.
type FileClaims struct {
	jwt.RegisteredClaims
	LinkID    string `json:"lid"`
	ContentID string `json:"cid"`
}

// GenerateFileToken signs a token for contentID valid for ttl. It returns the
// token string and its jti.
func GenerateFileToken(linkID, contentID string, secretKey []byte, ttl time.Duration, now time.Time) (string, string, error) {
	jti := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, FileClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		LinkID:    linkID,
		ContentID: contentID,
	})

	s, err := token.SignedString(secretKey)
	if err != nil {
		return "", "", err
	}
	return s, jti, nil
}

// ParseFileToken verifies signature and expiry. Expired tokens yield
// common.ErrTokenExpired, anything else invalid yields common.ErrInvalidToken.
func ParseFileToken(tokenString string, secretKey []byte) (*FileClaims, error) {
	claims := &FileClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.ID == "" || claims.ContentID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
