package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandlers provides HTTP handlers for admin user operations
type UserHandlers struct {
	service UserManager
	logger  *zap.Logger
}

// NewUserHandlers creates new admin user handlers
func NewUserHandlers(service UserManager, logger *zap.Logger) *UserHandlers {
	return &UserHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers all admin user routes
func (h *UserHandlers) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("", h.Create)
		users.GET("", h.Find)
		users.POST("/batch-delete", h.DeleteMany)
		users.POST("/registration-link", h.SendRegistrationLink)
		users.GET("/:id", h.FindOne)
		users.PUT("/:id", h.Update)
		users.DELETE("/:id", h.DeleteOne)
	}
}

// Create handles POST /admin/users
func (h *UserHandlers) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": user})
}

// Find handles GET /admin/users. A `_q` query parameter switches to search mode.
func (h *UserHandlers) Find(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	q := &ListQuery{
		Query:    c.Query("_q"),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.service.Find(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// FindOne handles GET /admin/users/:id
func (h *UserHandlers) FindOne(c *gin.Context) {
	user, err := h.service.FindOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

// Update handles PUT /admin/users/:id
func (h *UserHandlers) Update(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

// DeleteOne handles DELETE /admin/users/:id
func (h *UserHandlers) DeleteOne(c *gin.Context) {
	user, err := h.service.DeleteOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

// DeleteMany handles POST /admin/users/batch-delete
func (h *UserHandlers) DeleteMany(c *gin.Context) {
	var req DeleteManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	deleted, err := h.service.DeleteMany(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": deleted})
}

// SendRegistrationLink handles POST /admin/users/registration-link. A request
// for an unknown email answers 204 so callers cannot probe which addresses
// are registered.
func (h *UserHandlers) SendRegistrationLink(c *gin.Context) {
	var req RegistrationLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	sent, err := h.service.SendRegistrationLink(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !sent {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "success"})
}

func (h *UserHandlers) respondError(c *gin.Context, err error) {
	var userErr *UserError
	if errors.As(err, &userErr) {
		switch userErr.Type {
		case UserErrorTypeValidationFailed:
			var fieldErrs FieldErrors
			if errors.As(userErr.Cause, &fieldErrs) {
				c.JSON(http.StatusBadRequest, gin.H{"error": userErr.Message, "details": fieldErrs})
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"error": userErr.Message})
			}
			return
		case UserErrorTypeDuplicateEmail:
			c.JSON(http.StatusBadRequest, gin.H{"error": userErr.Message})
			return
		case UserErrorTypeNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": userErr.Message})
			return
		}
	}

	h.logger.Error("Admin user request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
