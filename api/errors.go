package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	monumentfees "github.com/bishal-dd/monument-fees-prototype"
	"github.com/bishal-dd/monument-fees-prototype/booking"
	"github.com/bishal-dd/monument-fees-prototype/cart"
	"github.com/bishal-dd/monument-fees-prototype/monument"
	"github.com/bishal-dd/monument-fees-prototype/otp"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{monument.ErrNotFound, http.StatusNotFound, "monument not found"},
	{booking.ErrNotFound, http.StatusNotFound, "booking not found"},
	{booking.ErrTicketNotFound, http.StatusNotFound, "ticket not found"},

	{monumentfees.ErrEmptySelection, http.StatusUnprocessableEntity, "select at least one ticket"},
	{monumentfees.ErrInvalidQuantity, http.StatusUnprocessableEntity, "invalid quantity"},
	{monumentfees.ErrInvalidCheckout, http.StatusUnprocessableEntity, "invalid checkout details"},
	{monumentfees.ErrInvalidMonument, http.StatusUnprocessableEntity, "invalid monument"},
	{monumentfees.ErrEmptyCart, http.StatusUnprocessableEntity, "cart is empty"},
	{monumentfees.ErrInvalidRange, http.StatusUnprocessableEntity, "invalid date range"},
	{otp.ErrInvalidCode, http.StatusUnprocessableEntity, "invalid verification code"},

	{monumentfees.ErrMonumentUnavailable, http.StatusConflict, "monument is not open for booking"},
	{monumentfees.ErrBookingNotPending, http.StatusConflict, "booking is not awaiting confirmation"},
	{monumentfees.ErrBookingNotPaid, http.StatusConflict, "booking is not paid"},
	{booking.ErrTicketAlreadyUsed, http.StatusConflict, "ticket already used"},
	{cart.ErrConcurrentUpdate, http.StatusConflict, "cart changed, try again"},

	{monumentfees.ErrBookingExpired, http.StatusGone, "booking has expired"},
	{otp.ErrExpired, http.StatusGone, "verification code expired"},

	{otp.ErrTooManyAttempts, http.StatusTooManyRequests, "too many verification attempts"},

	{monumentfees.ErrPaymentFailed, http.StatusPaymentRequired, "payment failed"},
}

// abortWithError answers with the status mapped to err, or 500 for errors
// the service does not name.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.AbortWithStatusJSON(m.status, gin.H{
				"message": m.message,
				"error":   err.Error(),
			})
			return
		}
	}

	h.logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"message": "internal error",
	})
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"message": message}
	if err != nil {
		body["error"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
