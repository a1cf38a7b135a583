package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/crown_ledger/model"
)

const (
	issuer          = "crown-ledger"
	contextKeyActor = "actor"
)

var errInvalidToken = errors.New("invalid token")

type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 bearer tokens. The subject is the
// account id; the role claim decides user, admin or system.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

func (m *TokenManager) Issue(actor model.Actor) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(actor.AccountID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) Verify(raw string) (model.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: subject %q", errInvalidToken, claims.Subject)
	}
	switch claims.Role {
	case model.RoleUser, model.RoleAdmin, model.RoleSystem:
	default:
		return model.Actor{}, fmt.Errorf("%w: role %q", errInvalidToken, claims.Role)
	}
	if claims.Role == model.RoleUser && id == 0 {
		return model.Actor{}, fmt.Errorf("%w: user token without account", errInvalidToken)
	}
	return model.Actor{AccountID: id, Role: claims.Role}, nil
}

// Authenticate resolves the bearer token into the request actor.
func Authenticate(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: "UNAUTHORIZED", Message: "missing bearer token"})
			return
		}
		actor, err := tokens.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: "UNAUTHORIZED", Message: "invalid token"})
			return
		}
		c.Set(contextKeyActor, actor)
		c.Next()
	}
}

// RequireOperator rejects callers that are neither admin nor system.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).IsOperator() {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Code: "FORBIDDEN", Message: "operator role required"})
			return
		}
		c.Next()
	}
}

func ActorFrom(c *gin.Context) model.Actor {
	if v, ok := c.Get(contextKeyActor); ok {
		if a, ok := v.(model.Actor); ok {
			return a
		}
	}
	return model.Actor{}
}
