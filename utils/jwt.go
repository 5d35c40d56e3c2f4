package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"taskhub/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type Claims struct {
	UserID       string      `json:"user_id"`
	Role         models.Role `json:"role"`
	TokenVersion int         `json:"token_version"`
	SessionID    string      `json:"session_id"`
	Type         string      `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses the service's access and refresh tokens.
type TokenIssuer struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		Secret:     []byte(secret),
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
	}
}

// GenerateTokens returns an access and a refresh token sharing one session id.
func (ti *TokenIssuer) GenerateTokens(user *models.User) (string, string, error) {
	sessionID := uuid.NewString()
	now := time.Now()

	accessToken, err := ti.sign(user, sessionID, TokenTypeAccess, now, ti.AccessTTL)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := ti.sign(user, sessionID, TokenTypeRefresh, now, ti.RefreshTTL)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (ti *TokenIssuer) sign(user *models.User, sessionID, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		SessionID:    sessionID,
		Type:         tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.Secret)
}

func (ti *TokenIssuer) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ti.Secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
