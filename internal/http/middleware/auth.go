package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"parcelhop/internal/domain"
)

const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
)

// Claims is the token payload issued by the identity service.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token. Used by the token command and tests.
func IssueToken(secret []byte, userID domain.ID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Auth validates the bearer token and stores the caller in the gin context.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		var claims Claims
		_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			abortUnauthorized(c, msg)
			return
		}
		role := strings.ToLower(strings.TrimSpace(claims.Role))
		if role == "" {
			role = domain.RoleUser
		}
		id, err := uuid.Parse(claims.UserID)
		if err != nil && role != domain.RoleSystem {
			abortUnauthorized(c, "invalid user_id claim")
			return
		}
		c.Set(UserIDKey, id)
		c.Set(UserRoleKey, role)
		c.Next()
	}
}

// Caller returns the authenticated caller stored by Auth.
func Caller(c *gin.Context) domain.RequestContext {
	rc := domain.RequestContext{Role: c.GetString(UserRoleKey)}
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(domain.ID); ok {
			rc.UserID = id
		}
	}
	return rc
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      msg,
		"code":       "unauthorized",
		"request_id": GetRequestID(c),
	})
}
