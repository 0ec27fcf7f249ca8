package jwt

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/jonboulle/clockwork"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Service verifies access tokens issued by the identity service. It can also
// mint tokens with the same claims, which local tooling and tests use.
type Service interface {
	GenerateAccessToken(userID, companyID, role string) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	secretKey                 string
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
	clock                     clockwork.Clock
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime time.Duration, clock clockwork.Clock) Service {
	return &JWTService{
		secretKey:                 secretKey,
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		clock:                     clock,
	}
}

func (j *JWTService) GenerateAccessToken(userID, companyID, role string) (token string, expiresAt int64, err error) {
	expiresAt = j.clock.Now().Add(j.accessTokenExpirationTime).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    userID,
		"company_id": companyID,
		"role":       role,
		"type":       "access",
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}
