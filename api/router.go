// Package api exposes the booking service over HTTP with gin.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	monumentfees "github.com/bishal-dd/monument-fees-prototype"
)

type Handler struct {
	svc           monumentfees.Service
	secureCookies bool
	logger        *zap.Logger
}

func NewHandler(svc monumentfees.Service, secureCookies bool, logger *zap.Logger) *Handler {
	return &Handler{
		svc:           svc,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// NewRouter wires every route. Identity is established upstream; the
// customer id arrives in the X-Customer-ID header.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())
	router.Use(cors)
	_ = router.SetTrustedProxies(nil)

	router.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/dzongkhags", h.ListDzongkhags)
		v1.GET("/monuments", h.ListMonuments)

		v1.GET("/cart", h.GetCart)
		v1.POST("/cart/items", h.AddToCart)
		v1.PATCH("/cart/items/:monumentID", h.UpdateCartItem)
		v1.DELETE("/cart/items/:monumentID", h.RemoveFromCart)
		v1.DELETE("/cart", h.ClearCart)

		v1.POST("/checkout", h.Checkout)
		v1.GET("/bookings/:bookingID", h.GetBooking)
		v1.POST("/bookings/:bookingID/otp/verify", h.VerifyOTP)
		v1.POST("/bookings/:bookingID/otp/resend", h.ResendOTP)
		v1.GET("/bookings/:bookingID/receipt", h.GetReceipt)

		v1.GET("/profile/bookings", h.ListBookings)

		staff := v1.Group("/staff")
		{
			staff.GET("/bookings/:code", h.LookupBooking)
			staff.POST("/bookings/:code/tickets/:ticketID/use", h.MarkTicketUsed)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/dashboard", h.Dashboard)
			admin.GET("/monuments", h.ListMonuments)
			admin.GET("/monuments/:id", h.GetMonument)
			admin.POST("/monuments", h.CreateMonument)
			admin.PUT("/monuments/:id", h.UpdateMonument)
			admin.DELETE("/monuments/:id", h.DeleteMonument)
		}
	}

	return router
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.logger.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()))
	}
}

// cors echoes the caller's origin so cross-origin requests may carry the
// cart session cookie.
func cors(c *gin.Context) {
	origin := c.GetHeader("Origin")
	if origin == "" {
		c.Next()
		return
	}

	header := c.Writer.Header()
	header.Set("Access-Control-Allow-Origin", origin)
	header.Add("Vary", "Origin")
	header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, "+customerHeader)
	header.Set("Access-Control-Allow-Credentials", "true")
	c.Next()
}
