package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is what a validated access token says about its bearer.
type Claims struct {
	UserID    uuid.UUID
	TokenID   string
	ExpiresAt time.Time
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate issues an access token carrying a fresh token id, so it can be revoked on sign-out.
func (m *TokenManager) Generate(userID uuid.UUID) (string, Claims, error) {
	claims := Claims{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: m.now().Add(m.ttl),
	}
	at := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        claims.TokenID,
		IssuedAt:  jwt.NewNumericDate(m.now()),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})
	token, err := at.SignedString(m.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return token, claims, nil
}

func (m *TokenManager) Validate(tokenStr string) (Claims, error) {
	var rc jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &rc, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(rc.Subject)
	if err != nil || rc.ID == "" || rc.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: userID, TokenID: rc.ID, ExpiresAt: rc.ExpiresAt.Time}, nil
}
