package registryapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload bound to a registered agent. Grounded on
// original_source's agent-registry/api/auth.py (bearer token bound to
// agent_id at register time) and teacher's general sentinel+typed error
// style (pkg/config/errors.go).
type Claims struct {
	jwt.RegisteredClaims
	AgentID string `json:"agent_id"`
	Admin   bool   `json:"admin,omitempty"`
}

// Authenticator issues and validates bearer tokens for the registry's
// mutating endpoints.
type Authenticator struct {
	secret            []byte
	algorithm         string
	expirationSeconds int
}

// NewAuthenticator builds an Authenticator. algorithm defaults to HS256 and
// expirationSeconds to 3600 per spec.md §6.
func NewAuthenticator(secret string, algorithm string, expirationSeconds int) *Authenticator {
	if algorithm == "" {
		algorithm = "HS256"
	}
	if expirationSeconds == 0 {
		expirationSeconds = 3600
	}
	return &Authenticator{secret: []byte(secret), algorithm: algorithm, expirationSeconds: expirationSeconds}
}

// IssueToken mints a bearer token bound to agentID, issued on Register.
func (a *Authenticator) IssueToken(agentID string, admin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(a.expirationSeconds) * time.Second)),
		},
		AgentID: agentID,
		Admin:   admin,
	}
	token := jwt.NewWithClaims(jwt.GetSigningMethod(a.algorithm), claims)
	return token.SignedString(a.secret)
}

// Authenticate validates the bearer token on r and returns its claims.
func (a *Authenticator) Authenticate(r *http.Request) (Claims, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return Claims{}, fmt.Errorf("missing bearer token")
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{a.algorithm}))
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
