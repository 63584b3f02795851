package tenantctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shipdesk/shipdesk/internal/tenant"
)

// TenantContextKey is the request context key for the acting tenant.
type TenantContextKey struct{}

// WithTenant stores the tenant reference in the context.
func WithTenant(ctx context.Context, ref tenant.Ref) context.Context {
	return context.WithValue(ctx, TenantContextKey{}, ref)
}

// TenantFromContext returns the tenant reference from context, if set.
func TenantFromContext(ctx context.Context) (tenant.Ref, bool) {
	if ctx == nil {
		return tenant.Ref{}, false
	}

	value := ctx.Value(TenantContextKey{})
	if value == nil {
		return tenant.Ref{}, false
	}
	switch typed := value.(type) {
	case tenant.Ref:
		if typed.Valid() {
			return typed, true
		}
	case string:
		parts := strings.SplitN(strings.TrimSpace(typed), ":", 2)
		if len(parts) != 2 {
			return tenant.Ref{}, false
		}
		tenantType, err := tenant.ParseType(parts[0])
		if err != nil {
			return tenant.Ref{}, false
		}
		id, err := snowflake.ParseString(parts[1])
		if err != nil {
			return tenant.Ref{}, false
		}
		return tenant.Ref{Type: tenantType, ID: id}, true
	}
	return tenant.Ref{}, false
}
