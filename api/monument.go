package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	monumentfees "github.com/bishal-dd/monument-fees-prototype"
	"github.com/bishal-dd/monument-fees-prototype/models"
	"github.com/bishal-dd/monument-fees-prototype/models/enum"
)

func (h *Handler) ListDzongkhags(c *gin.Context) {
	dzongkhags, err := h.svc.ListDzongkhags(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dzongkhags": dzongkhags})
}

// ListMonuments filters by ?dzongkhag_id= or searches by ?q=, otherwise pages
// through the whole catalog.
func (h *Handler) ListMonuments(c *gin.Context) {
	var filter monumentfees.MonumentFilter
	if v := c.Query("dzongkhag_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "invalid dzongkhag id", err)
			return
		}
		filter.DzongkhagID = id
	}
	filter.Query = c.Query("q")

	var ok bool
	if filter.Limit, filter.Offset, ok = pagination(c); !ok {
		return
	}

	monuments, err := h.svc.ListMonuments(c.Request.Context(), filter)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"monuments": monuments})
}

func (h *Handler) GetMonument(c *gin.Context) {
	id, ok := monumentIDParam(c, "id")
	if !ok {
		return
	}

	m, err := h.svc.GetMonument(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type monumentRequest struct {
	DzongkhagID int64               `json:"dzongkhag_id" binding:"required,gt=0"`
	Name        string              `json:"name" binding:"required"`
	Location    string              `json:"location"`
	Price       decimal.Decimal     `json:"price"`
	Status      enum.MonumentStatus `json:"status" binding:"omitempty,oneof=active inactive"`
	Featured    bool                `json:"featured"`
}

func (r monumentRequest) model(id int64) *models.Monument {
	status := r.Status
	if status == "" {
		status = enum.MonumentStatusActive
	}
	return &models.Monument{
		ID:          id,
		DzongkhagID: r.DzongkhagID,
		Name:        r.Name,
		Location:    r.Location,
		Price:       r.Price,
		Status:      status,
		Featured:    r.Featured,
	}
}

func (h *Handler) CreateMonument(c *gin.Context) {
	var req monumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid monument", err)
		return
	}

	m := req.model(0)
	if err := h.svc.CreateMonument(c.Request.Context(), m); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) UpdateMonument(c *gin.Context) {
	id, ok := monumentIDParam(c, "id")
	if !ok {
		return
	}

	var req monumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid monument", err)
		return
	}

	m := req.model(id)
	if err := h.svc.UpdateMonument(c.Request.Context(), m); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMonument(c *gin.Context) {
	id, ok := monumentIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteMonument(c.Request.Context(), id); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
