package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldlog/api/internal/apperr"
	"fieldlog/api/internal/service"
)

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}

	c.JSON(http.StatusOK, resp)
}

// CreateUser is the admin path for provisioning accounts. Same validation
// as registration, but no token is issued for the new account.
func (h HandlerSet) CreateUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperr.Validation("invalid request body"))
		return
	}

	user, err := h.authService.CreateUser(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
