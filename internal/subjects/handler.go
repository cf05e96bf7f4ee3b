package subjects

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"edulend/loan-portal/loan-portal-backend/internal/ratelimit"
)

// Handler exposes subject registration and lookup.
type Handler struct {
	service Service
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// NewHandler creates a subjects handler. The limiter throttles registration
// attempts per client IP.
func NewHandler(service Service, limiter *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{service: service, limiter: limiter, logger: logger}
}

// RegisterRoutes registers subject routes. Registration is public; the "me"
// route sits behind the auth middleware supplied by the caller.
func (h *Handler) RegisterRoutes(public, authed *gin.RouterGroup) {
	public.POST("/subjects/register", h.register)
	authed.GET("/subjects/me", h.me)
}

func (h *Handler) register(c *gin.Context) {
	allowed, err := h.limiter.Allow(c.Request.Context(), "register:"+c.ClientIP())
	if err != nil {
		h.logger.Warn("registration rate limit check failed, allowing request", zap.Error(err))
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"message": "too many registration attempts, try again later",
		})
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	subject, err := h.service.Register(c.Request.Context(), req)
	if errors.Is(err, ErrDuplicate) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": ErrDuplicate.Error()})
		return
	}
	if err != nil {
		h.logger.Error("registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": subject})
}

func (h *Handler) me(c *gin.Context) {
	raw, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication required"})
		return
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid subject identity"})
		return
	}
	subject, err := h.service.Get(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "subject not found"})
		return
	}
	if err != nil {
		h.logger.Error("subject lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": subject})
}
