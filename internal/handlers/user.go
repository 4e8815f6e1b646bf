package handlers

import (
	"net/http"

	"github.com/uestcqxq/tetrisByKiro/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type CreateUserRequest struct {
	Username string `json:"username" example:"BlockMaster42"`
}

// CreateUser godoc
// @Summary      Create a user
// @Description  Create an account-less user; a username is generated when omitted
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body CreateUserRequest false "Optional username"
// @Success      201 {object} map[string]interface{}
// @Failure      400 {object} ErrorResponse
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "request body must be JSON"})
			return
		}
	}

	user, err := h.userService.CreateUser(req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": user})
}

// GetUser godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} ErrorResponse
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}
