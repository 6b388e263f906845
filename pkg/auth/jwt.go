// Package auth turns bearer tokens issued by the user service into actors.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	jwt "github.com/golang-jwt/jwt/v4"
)

const defaultRoleClaim = "role"

// JWTVerifier validates HS256 tokens. The subject is read from "id", falling back to "sub".
type JWTVerifier struct {
	secret    []byte
	roleClaim string
	parser    *jwt.Parser
}

func NewJWTVerifier(secret, roleClaim string) *JWTVerifier {
	if strings.TrimSpace(roleClaim) == "" {
		roleClaim = defaultRoleClaim
	}
	return &JWTVerifier{
		secret:    []byte(secret),
		roleClaim: roleClaim,
		parser:    jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify returns the actor named by a raw token (without the "Bearer " prefix).
func (v *JWTVerifier) Verify(raw string) (models.Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Actor{}, apperr.Unauthenticated("missing bearer token")
	}

	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, v.keyfunc); err != nil {
		return models.Actor{}, apperr.UnauthenticatedWithCause(err, "invalid token")
	}

	id := stringClaim(claims, "id")
	if id == "" {
		id = stringClaim(claims, "sub")
	}
	if id == "" {
		return models.Actor{}, apperr.Unauthenticated("token has no subject")
	}

	role, ok := models.ParseRole(stringClaim(claims, v.roleClaim))
	if !ok {
		return models.Actor{}, apperr.Unauthenticated("token has no recognised role")
	}

	return models.Actor{ID: id, Role: role}, nil
}

// Sign mints a token for actor. It is used by tooling and tests; production tokens come
// from the user service.
func (v *JWTVerifier) Sign(actor models.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":        actor.ID,
		v.roleClaim: string(actor.Role),
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *JWTVerifier) keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return v.secret, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	switch value := claims[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return fmt.Sprintf("%.0f", value)
	default:
		return ""
	}
}
