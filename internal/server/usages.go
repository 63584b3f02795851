package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// GetUsage returns one ledger record by id, for manifest views.
func (s *Server) GetUsage(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rec, err := s.ledgerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

// GetBookingUsage returns the ledger record consumed by a booking.
func (s *Server) GetBookingUsage(c *gin.Context) {
	rec, err := s.ledgerSvc.GetByBookingRef(c.Request.Context(), c.Param("booking_ref"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}
