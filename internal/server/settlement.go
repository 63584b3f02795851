package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	settlementdomain "github.com/shipdesk/shipdesk/internal/settlement/domain"
)

func (s *Server) SettlementReport(c *gin.Context) {
	ref, err := tenantFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	month, year, err := periodFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	report, err := s.settlementSvc.ComputePeriod(c.Request.Context(), ref, month, year)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) SetSettlementOverride(c *gin.Context) {
	var req struct {
		TenantType string  `json:"tenant_type"`
		TenantID   string  `json:"tenant_id"`
		Month      int     `json:"month"`
		Year       int     `json:"year"`
		Amount     float64 `json:"amount"`
		SetBy      string  `json:"set_by"`
		Notes      string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	ref, err := parseTenantRef(req.TenantType, req.TenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	override, err := s.settlementSvc.SetOverride(c.Request.Context(), settlementdomain.SetOverrideRequest{
		Tenant: ref,
		Month:  req.Month,
		Year:   req.Year,
		Amount: req.Amount,
		SetBy:  req.SetBy,
		Notes:  req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": override})
}

func (s *Server) ClearSettlementOverride(c *gin.Context) {
	ref, err := tenantFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	month, year, err := periodFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.settlementSvc.ClearOverride(c.Request.Context(), ref, month, year); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) GenerateInvoice(c *gin.Context) {
	var req struct {
		TenantType string `json:"tenant_type"`
		TenantID   string `json:"tenant_id"`
		Month      int    `json:"month"`
		Year       int    `json:"year"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	ref, err := parseTenantRef(req.TenantType, req.TenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.settlementSvc.GenerateInvoice(c.Request.Context(), ref, req.Month, req.Year)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (s *Server) ListUnpaid(c *gin.Context) {
	ref, err := tenantFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var paymentType *ledgerdomain.PaymentType
	if raw := c.Query("payment_type"); raw != "" {
		parsed, err := ledgerdomain.ParsePaymentType(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		paymentType = &parsed
	}

	records, err := s.ledgerSvc.FindUnpaid(c.Request.Context(), ref, paymentType)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

func periodFromQuery(c *gin.Context) (int, int, error) {
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		return 0, 0, settlementdomain.ErrInvalidPeriod
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		return 0, 0, settlementdomain.ErrInvalidPeriod
	}
	return month, year, nil
}
