package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	"github.com/shipdesk/shipdesk/internal/tenant"
	"github.com/shipdesk/shipdesk/internal/tenantctx"
)

func (s *Server) GrantRange(c *gin.Context) {
	var req assignmentdomain.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.assignmentSvc.Grant(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRanges(c *gin.Context) {
	ref, err := tenantFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var (
		items []assignmentdomain.Response
	)
	if c.Query("include_revoked") == "true" {
		items, err = s.assignmentSvc.List(c.Request.Context(), ref)
	} else {
		items, err = s.assignmentSvc.ListActive(c.Request.Context(), ref)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetRange(c *gin.Context) {
	resp, err := s.assignmentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevokeRange(c *gin.Context) {
	if err := s.assignmentSvc.Revoke(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

func (s *Server) NextNumber(c *gin.Context) {
	ref, err := tenantFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	number, err := s.allocationSvc.NextNumber(c.Request.Context(), ref)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"next_number": number}})
}

func (s *Server) Quota(c *gin.Context) {
	ref, err := tenantFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	quota, err := s.allocationSvc.Quota(c.Request.Context(), ref)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quota})
}

func tenantFromQuery(c *gin.Context) (tenant.Ref, error) {
	if c.Query("tenant_type") == "" && c.Query("tenant_id") == "" {
		if ref, ok := tenantctx.TenantFromContext(c.Request.Context()); ok {
			return ref, nil
		}
	}
	return parseTenantRef(c.Query("tenant_type"), c.Query("tenant_id"))
}

func parseTenantRef(tenantType, tenantID string) (tenant.Ref, error) {
	parsedType, err := tenant.ParseType(tenantType)
	if err != nil {
		return tenant.Ref{}, err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || id == 0 {
		return tenant.Ref{}, ErrInvalidRequest
	}
	return tenant.Ref{Type: parsedType, ID: id}, nil
}
