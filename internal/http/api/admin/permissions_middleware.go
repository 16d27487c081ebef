package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	permissions "github.com/perkbase/loyalty-admin/internal/http/api/admin/permissions"
	"github.com/perkbase/loyalty-admin/internal/models"
	"gorm.io/gorm"
)

// adminAccess is the per-request permission view of the acting admin,
// cached on the gin context after the first lookup.
type adminAccess struct {
	permissions  []string
	isSuperAdmin bool
}

// adminPermissionMiddleware authorizes loyalty console routes. Every
// route must have a registered permission definition; requests to
// undefined keys are denied regardless of who asks. Super admins pass
// any defined key, everyone else needs an explicit grant.
func adminPermissionMiddleware(db *gorm.DB) gin.HandlerFunc {
	permissionMap := permissions.DefinitionMap()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		key := permissions.Key(c.Request.Method, path)
		if _, ok := permissionMap[key]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		access, ok := resolveAdminAccess(c, db)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}

		if access.isSuperAdmin {
			c.Next()
			return
		}
		if !permissions.HasPermission(access.permissions, key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}

// resolveAdminAccess returns the acting admin's permission view,
// loading it from the database once per request.
func resolveAdminAccess(c *gin.Context, db *gorm.DB) (adminAccess, bool) {
	if cached, ok := c.Get("adminAccess"); ok {
		if access, okCast := cached.(adminAccess); okCast {
			return access, true
		}
	}

	adminIDValue, exists := c.Get("adminID")
	if !exists {
		return adminAccess{}, false
	}
	adminID, okID := adminIDValue.(uint64)
	if !okID {
		return adminAccess{}, false
	}

	var admin models.Admin
	if errFind := db.WithContext(c.Request.Context()).
		Select("id", "permissions", "is_super_admin").
		First(&admin, adminID).Error; errFind != nil {
		return adminAccess{}, false
	}

	access := adminAccess{
		permissions:  permissions.ParsePermissions(admin.Permissions),
		isSuperAdmin: admin.IsSuperAdmin,
	}
	c.Set("adminAccess", access)
	return access, true
}
