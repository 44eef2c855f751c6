package inmemcreds

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/shikshahub/portal/core"
)

var errInvalidToken = errors.New("invalid auth token")

// tokenClaims is the shape of a pre-issued bootstrap token.
type tokenClaims struct {
	jwt.StandardClaims
	UID string `json:"uid"`
}

// MintToken issues a signed bootstrap token for an identity, exchangeable
// via SignInWithToken.
func MintToken(id core.Identity, secretKey []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &tokenClaims{
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		UID: string(id),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// VerifyToken parses a bootstrap token and returns the identity it carries.
func VerifyToken(tokenStr string, secretKey []byte) (core.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		return core.NoIdentity, errInvalidToken
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.UID == "" {
		return core.NoIdentity, errInvalidToken
	}
	return core.Identity(claims.UID), nil
}
