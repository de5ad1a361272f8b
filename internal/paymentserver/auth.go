package paymentserver

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ScopeRead  = "payments.read"
	ScopeWrite = "payments.write"

	accountKey = "account"
)

// Claims are the access token claims the gateway understands. The account is
// client_id when present, the subject otherwise.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

func (c Claims) account() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return c.Subject
}

func (c Claims) hasScope(scope string) bool {
	return slices.Contains(strings.Fields(c.Scope), scope)
}

// Authenticator validates HS256 bearer tokens. With an empty secret token
// checks are off and every caller acts as the default account.
type Authenticator struct {
	secret         []byte
	issuer         string
	defaultAccount string
}

func NewAuthenticator(secret, issuer, defaultAccount string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, defaultAccount: defaultAccount}
}

func (a *Authenticator) enabled() bool {
	return len(a.secret) > 0
}

// Require rejects requests without a valid token carrying scope and stores
// the caller's account on the context.
func (a *Authenticator) Require(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled() {
			c.Set(accountKey, a.defaultAccount)
			c.Next()
			return
		}

		claims, err := a.parse(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}
		if !claims.hasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "missing scope " + scope})
			return
		}
		c.Set(accountKey, claims.account())
		c.Next()
	}
}

func (a *Authenticator) parse(header string) (*Claims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, errors.New("missing bearer token")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.account() == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func accountFrom(c *gin.Context) string {
	return c.GetString(accountKey)
}
