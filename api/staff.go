package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) LookupBooking(c *gin.Context) {
	details, err := h.svc.LookupBooking(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) MarkTicketUsed(c *gin.Context) {
	ticketID, err := strconv.ParseInt(c.Param("ticketID"), 10, 64)
	if err != nil || ticketID <= 0 {
		badRequest(c, "invalid ticket id", err)
		return
	}

	details, err := h.svc.MarkTicketUsed(c.Request.Context(), c.Param("code"), ticketID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Dashboard reads an optional from/to range as YYYY-MM-DD dates; to is
// inclusive.
func (h *Handler) Dashboard(c *gin.Context) {
	var from, to time.Time
	var err error
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.DateOnly, v); err != nil {
			badRequest(c, "invalid from date", err)
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.DateOnly, v); err != nil {
			badRequest(c, "invalid to date", err)
			return
		}
		to = to.AddDate(0, 0, 1)
	}

	dashboard, err := h.svc.Dashboard(c.Request.Context(), from, to)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}
