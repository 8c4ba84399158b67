package services

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSigningKey means the service was started without a shared secret.
	ErrNoSigningKey = errors.New("no token signing key configured")
	// ErrTokenInvalid covers missing, malformed, expired and badly signed
	// tokens. Maps to 401.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrWrongAccount means the signature checked out but the embedded
	// account is not the trusted one. Maps to 403.
	ErrWrongAccount = errors.New("token account is not trusted")
)

type serviceClaims struct {
	AccountID string `json:"accountId"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the short-lived HMAC-signed bearer tokens
// used between trusted internal services. Verification is stateless; there is
// no server-side session.
type TokenService struct {
	SigningKey     []byte
	TrustedAccount string
	TTL            time.Duration
}

func NewTokenService(signingKey, trustedAccount string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &TokenService{
		SigningKey:     []byte(signingKey),
		TrustedAccount: trustedAccount,
		TTL:            ttl,
	}
}

// Issue produces a signed token embedding accountID, valid for the service TTL.
func (s *TokenService) Issue(accountID string) (string, error) {
	if len(s.SigningKey) == 0 {
		return "", ErrNoSigningKey
	}

	now := time.Now()
	claims := serviceClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates tokenString and returns the embedded account id.
// Signature, expiry and signing method failures all surface as
// ErrTokenInvalid; a valid token for the wrong account is ErrWrongAccount.
func (s *TokenService) Verify(tokenString string) (string, error) {
	if len(s.SigningKey) == 0 {
		return "", ErrNoSigningKey
	}

	var claims serviceClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.AccountID == "" || claims.AccountID != s.TrustedAccount {
		return "", ErrWrongAccount
	}
	return claims.AccountID, nil
}
