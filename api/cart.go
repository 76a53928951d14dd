package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bishal-dd/monument-fees-prototype/models"
)

const sessionCookie = "cart_session"

// sessionID returns the cart session of the request, starting a new one when
// the cookie is missing or malformed.
func (h *Handler) sessionID(c *gin.Context) string {
	if cookie, err := c.Request.Cookie(sessionCookie); err == nil {
		if _, err = uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func monumentIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid monument id", err)
		return 0, false
	}
	return id, true
}

func (h *Handler) GetCart(c *gin.Context) {
	view, err := h.svc.GetCart(c.Request.Context(), h.sessionID(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type addToCartRequest struct {
	MonumentID    int64 `json:"monument_id" binding:"required,gt=0"`
	AdultQuantity int   `json:"adult_quantity" binding:"gte=0"`
	KidQuantity   int   `json:"kid_quantity" binding:"gte=0"`
}

func (h *Handler) AddToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid cart item", err)
		return
	}

	view, err := h.svc.AddToCart(c.Request.Context(), h.sessionID(c), req.MonumentID, req.AdultQuantity, req.KidQuantity)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type updateCartItemRequest struct {
	AdultQuantity *int `json:"adult_quantity" binding:"omitempty,gte=0"`
	KidQuantity   *int `json:"kid_quantity" binding:"omitempty,gte=0"`
}

// UpdateCartItem sets either or both counts of an entry. Both counts are
// written in a single cart update.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	monumentID, ok := monumentIDParam(c, "monumentID")
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid quantities", err)
		return
	}
	if req.AdultQuantity == nil && req.KidQuantity == nil {
		badRequest(c, "adult_quantity or kid_quantity is required", nil)
		return
	}

	ctx := c.Request.Context()
	sessionID := h.sessionID(c)

	var (
		view *models.CartView
		err  error
	)
	switch {
	case req.KidQuantity == nil:
		view, err = h.svc.UpdateAdultQuantity(ctx, sessionID, monumentID, *req.AdultQuantity)
	case req.AdultQuantity == nil:
		view, err = h.svc.UpdateKidQuantity(ctx, sessionID, monumentID, *req.KidQuantity)
	default:
		view, err = h.svc.UpdateQuantities(ctx, sessionID, monumentID, *req.AdultQuantity, *req.KidQuantity)
	}
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	monumentID, ok := monumentIDParam(c, "monumentID")
	if !ok {
		return
	}

	view, err := h.svc.RemoveFromCart(c.Request.Context(), h.sessionID(c), monumentID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.svc.ClearCart(c.Request.Context(), h.sessionID(c)); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
