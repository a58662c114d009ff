package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vinylhouse/labelapi/internal/config"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

// AdminAuthMiddleware authenticates back-office requests with the admin API key.
// The key is compared against the configured bcrypt hash; without a hash the
// admin API is unavailable.
func AdminAuthMiddleware(cfg config.AdminConfig, logger *zap.Logger) gin.HandlerFunc {
	hash := []byte(cfg.APIKeyHash)
	return func(c *gin.Context) {
		if len(hash) == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin API not configured"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "invalid authorization header format")
			return
		}

		apiKey := strings.TrimSpace(parts[1])
		if apiKey == "" {
			unauthorized(c, "missing API key")
			return
		}

		if !VerifyAPIKey(apiKey, string(hash)) {
			logger.Warn("Rejected admin API key", zap.String("path", c.Request.URL.Path), zap.String("client_ip", c.ClientIP()))
			unauthorized(c, "invalid API key")
			return
		}

		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	err := &errors.ErrUnauthorized{Message: msg}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
}

// HashAPIKey hashes an API key for ADMIN_API_KEY_HASH
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey verifies an API key against a hash
func VerifyAPIKey(apiKey, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey))
	return err == nil
}
