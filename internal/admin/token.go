package admin

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidSession = errors.New("invalid or expired session")

// Session is what a verified admin bearer token carries.
type Session struct {
	Username  string
	Roles     []string
	ExpiresAt time.Time
}

// HasRole reports whether the session grants role. Accounts without roles
// have full access.
func (s Session) HasRole(role string) bool {
	if len(s.Roles) == 0 {
		return true
	}
	for _, r := range s.Roles {
		if r == role || r == "superadmin" {
			return true
		}
	}
	return false
}

// IssueSessionToken signs an HS256 token for an admin.
func IssueSessionToken(secret, username string, roles []string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := jwt.MapClaims{
		"sub":   username,
		"roles": roles,
		"iat":   time.Now().Unix(),
		"exp":   exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, exp, nil
}

// ParseSessionToken verifies a token issued by IssueSessionToken.
func ParseSessionToken(secret, tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidSession
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidSession
	}

	s := &Session{Username: sub}
	if exp, ok := claims["exp"].(float64); ok {
		s.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if str, ok := r.(string); ok {
				s.Roles = append(s.Roles, str)
			}
		}
	}
	return s, nil
}
