package server

import (
	"github.com/gin-gonic/gin"
	"github.com/shipdesk/shipdesk/internal/tenantctx"
)

const (
	HeaderTenantType = "X-Tenant-Type"
	HeaderTenantID   = "X-Tenant-ID"
)

// TenantContext resolves the acting tenant from request headers and stores
// it in the request context. Handlers that read the tenant from query
// parameters fall back to the context tenant when the parameters are absent.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantType := c.GetHeader(HeaderTenantType)
		tenantID := c.GetHeader(HeaderTenantID)
		if tenantType != "" && tenantID != "" {
			if ref, err := parseTenantRef(tenantType, tenantID); err == nil {
				c.Request = c.Request.WithContext(tenantctx.WithTenant(c.Request.Context(), ref))
			}
		}
		c.Next()
	}
}
