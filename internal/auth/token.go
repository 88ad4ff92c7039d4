package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims is the subset of token claims the API consumes. Token issuance
// lives in the identity service; this side only verifies.
type Claims struct {
	Subject string
	Roles   []string
}

// Verifier checks HS256 access tokens shared with the identity service.
type Verifier struct {
	Secret    []byte
	Issuer    string
	ClockSkew time.Duration
}

// Verify parses and validates a raw token, returning its claims.
func (v Verifier) Verify(raw string) (Claims, error) {
	if len(v.Secret) == 0 {
		return Claims{}, errors.New("auth: verifier secret not configured")
	}
	options := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.Secret),
		jwt.WithValidate(true),
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	tok, err := jwt.Parse([]byte(raw), options...)
	if err != nil {
		return Claims{}, fmt.Errorf("auth: parse token: %w", err)
	}
	claims := Claims{Subject: tok.Subject()}
	if claims.Subject == "" {
		return Claims{}, errors.New("auth: token missing subject")
	}
	if raw, ok := tok.Get("roles"); ok {
		claims.Roles = toRoles(raw)
	}
	return claims, nil
}

func toRoles(v any) []string {
	switch roles := v.(type) {
	case []string:
		return roles
	case []any:
		out := make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
