package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/shipdesk/shipdesk/internal/booking/domain"
)

func (s *Server) CreateBooking(c *gin.Context) {
	var req bookingdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	b, err := s.bookingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": b})
}

func (s *Server) GetBooking(c *gin.Context) {
	b, err := s.bookingSvc.Get(c.Request.Context(), c.Param("booking_ref"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

func (s *Server) ListBookings(c *gin.Context) {
	var req bookingdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.bookingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Bookings, "page_info": resp.PageInfo})
}

func (s *Server) CancelBooking(c *gin.Context) {
	b, err := s.bookingSvc.Cancel(c.Request.Context(), c.Param("booking_ref"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}

func (s *Server) UpdateBookingStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	b, err := s.bookingSvc.UpdateStatus(c.Request.Context(), c.Param("booking_ref"), bookingdomain.Status(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": b})
}
