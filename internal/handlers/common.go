package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/uestcqxq/tetrisByKiro/internal/services"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

// respondError maps the service error taxonomy onto HTTP statuses.
// Storage failures are logged with context and answered with a
// generic message.
func respondError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	var nfErr *services.NotFoundError
	var sErr *services.StorageError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: vErr.Error()})
	case errors.As(err, &nfErr):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: nfErr.Error()})
	case errors.As(err, &sErr):
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, sErr)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
