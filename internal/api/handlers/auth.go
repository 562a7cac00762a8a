package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/linechime/backend/internal/config"
)

const sessionIDKey = "session_id"

var errInvalidToken = errors.New("invalid token")

// issueSessionToken signs a token granting access to one session.
func issueSessionToken(cfg *config.Config, id string) (string, time.Time, error) {
	hours := cfg.SessionTokenHours
	if hours <= 0 {
		hours = 12
	}
	exp := time.Now().Add(time.Duration(hours) * time.Hour)
	claims := jwt.MapClaims{
		"session_id": id,
		"exp":        jwt.NewNumericDate(exp).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	return signed, exp, err
}

// parseSessionToken verifies a token and returns its session id.
func parseSessionToken(cfg *config.Config, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", errInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidToken
	}
	id, ok := claims["session_id"].(string)
	if !ok || id == "" {
		return "", errInvalidToken
	}
	return id, nil
}

// SessionAuth validates the session token from the Authorization header or
// the token query parameter and checks it matches the :id route parameter.
func SessionAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		id, err := parseSessionToken(cfg, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if param := c.Param("id"); param != "" && param != id {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is for another session"})
			return
		}
		c.Set(sessionIDKey, id)
		c.Next()
	}
}
