package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/perkbase/loyalty-admin/internal/config"
	"github.com/perkbase/loyalty-admin/internal/security"
	"github.com/perkbase/loyalty-admin/internal/util"
	log "github.com/sirupsen/logrus"
)

// adminAuthMiddleware validates the bearer token and stores the admin
// identity on the request context.
func adminAuthMiddleware(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, errParse := security.ParseAdminToken(jwtCfg.Secret, token)
		if errParse != nil {
			log.Debugf("admin auth rejected token %s: %v", util.MaskToken(token), errParse)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("adminID", claims.AdminID)
		c.Set("adminUsername", claims.Username)
		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
