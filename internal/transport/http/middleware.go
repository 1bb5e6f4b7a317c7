package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const userIDKey = "userID"

// Claims is the token payload issued by the auth service.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

type authenticator struct {
	secret []byte
}

// require rejects requests without a valid bearer token.
func (a authenticator) require() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := a.parse(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Kind: kindUnauthorized, Message: err.Error()})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// optional sets the caller when a valid token is present and lets anonymous
// requests through.
func (a authenticator) optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := a.parse(c.GetHeader("Authorization")); err == nil {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

func (a authenticator) parse(header string) (string, error) {
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return "", errors.New("no token, authorization denied")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.New("token is not valid")
	}
	if claims.UserID == "" {
		return "", errors.New("token is missing the user id")
	}
	return claims.UserID, nil
}

// callerID returns the authenticated user id, or "" for anonymous requests.
func callerID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
