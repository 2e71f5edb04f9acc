package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const ContextAdminClaim = "context_admin_claim"

const RoleAdmin = "admin"

var (
	ErrMissingSecret = errors.New("auth: admin secret is not configured")
	ErrNotAdmin      = errors.New("auth: token does not carry the admin role")
)

// AdminClaim is carried by tokens accepted on the cache administration
// endpoints.
type AdminClaim struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewAdminClaim(subject string, ttl time.Duration, now time.Time) AdminClaim {
	return AdminClaim{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func CreateJwtSignedString(c AdminClaim, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(secret)
}

// ParseAdminToken validates an HS256 token signed with secret and returns its
// claim.
func ParseAdminToken(tokenString string, secret []byte) (*AdminClaim, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	claim := &AdminClaim{}
	token, err := jwt.ParseWithClaims(tokenString, claim, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claim.Role != RoleAdmin {
		return nil, ErrNotAdmin
	}
	return claim, nil
}
