package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Clark-Hu/cinerate/internal/domain"
)

const (
	issuer           = "cinerate"
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims are carried by both token types; Type tells them apart.
type Claims struct {
	Username string `json:"username"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

type tokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func newTokenManager(secret []byte, accessTTL, refreshTTL time.Duration) *tokenManager {
	return &tokenManager{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (m *tokenManager) sign(user domain.User, typ string) (string, error) {
	ttl := m.accessTTL
	if typ == tokenTypeRefresh {
		ttl = m.refreshTTL
	}
	now := m.now()
	claims := &Claims{
		Username: user.Username,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (m *tokenManager) parse(raw string, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
