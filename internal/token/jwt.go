package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/model"
)

// Claims carries the principal asserted by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	TokenType string    `json:"typ"`
}

// JWT implements TokenManager backed by symmetric HMAC.
type JWT struct {
	secretKey  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWT creates a new JWT token manager with the provided secret key and lifetimes.
// Non-positive lifetimes fall back to the defaults.
func NewJWT(secretKey string, accessTTL, refreshTTL time.Duration) *JWT {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &JWT{secretKey: secretKey, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

var _ model.TokenManager = (*JWT)(nil)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour

	typeAccess  = "access"
	typeRefresh = "refresh"
)

// RefreshTTL returns the configured refresh token lifetime.
func (j *JWT) RefreshTTL() time.Duration {
	return j.refreshTTL
}

func (j *JWT) sign(principal model.Principal, tokenType, jti string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   principal.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    principal.UserID,
		Email:     principal.Email,
		TokenType: tokenType,
	})

	return token.SignedString([]byte(j.secretKey))
}

// GenerateAccessToken creates a short-lived access token.
func (j *JWT) GenerateAccessToken(principal model.Principal) (string, error) {
	tokenString, err := j.sign(principal, typeAccess, "", j.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken creates a long-lived refresh token and returns its JTI.
func (j *JWT) GenerateRefreshToken(principal model.Principal) (string, string, error) {
	jti := uuid.NewString()
	tokenString, err := j.sign(principal, typeRefresh, jti, j.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, jti, nil
}

func (j *JWT) parse(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s token: %w", wantType, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s token is invalid", wantType)
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("token type mismatch: %s", claims.TokenType)
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%s token has no subject", wantType)
	}
	return claims, nil
}

// ParseAccessToken validates an access token and returns its principal.
func (j *JWT) ParseAccessToken(tokenString string) (model.Principal, error) {
	claims, err := j.parse(tokenString, typeAccess)
	if err != nil {
		return model.Principal{}, err
	}
	return model.Principal{UserID: claims.UserID, Email: claims.Email}, nil
}

// ParseRefreshToken validates a refresh token and returns its principal and JTI.
func (j *JWT) ParseRefreshToken(tokenString string) (model.Principal, string, error) {
	claims, err := j.parse(tokenString, typeRefresh)
	if err != nil {
		return model.Principal{}, "", err
	}
	return model.Principal{UserID: claims.UserID, Email: claims.Email}, claims.ID, nil
}
