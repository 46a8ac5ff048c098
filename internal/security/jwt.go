package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stylisthq/stylist-server/internal/config"
)

// Token subject kinds encoded in the claims.
const (
	// SubjectKindUser marks an end-user session token.
	SubjectKindUser = "user"
	// SubjectKindAdmin marks an operator session token.
	SubjectKindAdmin = "admin"
)

// ErrInvalidToken indicates a token that failed parsing or validation.
var ErrInvalidToken = errors.New("security: invalid token")

// SessionClaims are the JWT claims carried by session tokens.
type SessionClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for the given subject ID and kind.
func IssueToken(cfg config.JWTConfig, subjectID uint64, kind string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("security: jwt secret not configured")
	}
	now := time.Now().UTC()
	claims := SessionClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("security: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns the subject ID and kind.
func ParseToken(cfg config.JWTConfig, raw string) (uint64, string, error) {
	if cfg.Secret == "" {
		return 0, "", fmt.Errorf("security: jwt secret not configured")
	}
	var claims SessionClaims
	token, errParse := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	})
	if errParse != nil || !token.Valid {
		return 0, "", ErrInvalidToken
	}
	subjectID, errAtoi := strconv.ParseUint(claims.Subject, 10, 64)
	if errAtoi != nil || subjectID == 0 {
		return 0, "", ErrInvalidToken
	}
	if claims.Kind != SubjectKindUser && claims.Kind != SubjectKindAdmin {
		return 0, "", ErrInvalidToken
	}
	return subjectID, claims.Kind, nil
}
