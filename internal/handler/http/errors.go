package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/service"
)

// HandleServiceError writes the HTTP response for a service error.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrGoalNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRoomFull), errors.Is(err, service.ErrRoomInactive),
		errors.Is(err, service.ErrRegistrationFailed):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotAdmin), errors.Is(err, service.ErrNotParticipant):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// currentUserID reads the id the Auth middleware stored. It writes the error
// response itself and reports false when the id is missing.
func currentUserID(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.WithField("path", c.FullPath()).Warn("Handler: user ID not found in context, middleware missing?")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("Handler: user ID in context is not uint")
		ErrorResponse(c, http.StatusInternalServerError, "Internal server error processing user ID")
		return 0, false
	}
	return userID, true
}
