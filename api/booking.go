package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	monumentfees "github.com/bishal-dd/monument-fees-prototype"
)

const (
	customerHeader  = "X-Customer-ID"
	defaultPageSize = 20
	maxPageSize     = 100
)

func bookingIDParam(c *gin.Context) (string, bool) {
	id := c.Param("bookingID")
	if _, err := uuid.Parse(id); err != nil {
		badRequest(c, "invalid booking id", err)
		return "", false
	}
	return id, true
}

func (h *Handler) Checkout(c *gin.Context) {
	var req monumentfees.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid checkout details", err)
		return
	}
	req.CustomerID = c.GetHeader(customerHeader)

	result, err := h.svc.Checkout(c.Request.Context(), h.sessionID(c), req)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	b, err := h.svc.GetBooking(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type verifyOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "verification code is required", err)
		return
	}

	b, err := h.svc.VerifyOTP(c.Request.Context(), h.sessionID(c), id, req.Code)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) ResendOTP(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	if err := h.svc.ResendOTP(c.Request.Context(), id); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "verification code sent"})
}

func (h *Handler) GetReceipt(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	receipt, err := h.svc.GetReceipt(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *Handler) ListBookings(c *gin.Context) {
	customerID := c.GetHeader(customerHeader)
	if customerID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": customerHeader + " header is required"})
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	bookings, err := h.svc.ListBookings(c.Request.Context(), customerID, limit, offset)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func pagination(c *gin.Context) (limit, offset uint64, ok bool) {
	limit, offset = defaultPageSize, 0
	var err error
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.ParseUint(v, 10, 64); err != nil || limit == 0 {
			badRequest(c, "invalid limit", err)
			return 0, 0, false
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.ParseUint(v, 10, 64); err != nil {
			badRequest(c, "invalid offset", err)
			return 0, 0, false
		}
	}
	return limit, offset, true
}
