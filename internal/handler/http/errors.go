package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/service"
)

func HandleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		ErrorResponse(c, http.StatusNotFound, err.Error())
	} else if errors.Is(err, service.ErrUsernameTaken) {
		ErrorResponse(c, http.StatusConflict, err.Error())
	} else if errors.Is(err, service.ErrPersistenceUnavailable) {
		ErrorResponse(c, http.StatusServiceUnavailable, err.Error())
	} else {
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
