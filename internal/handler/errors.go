package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/dto"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindInvalidInput:       http.StatusBadRequest,
	domain.KindWeakCredential:     http.StatusBadRequest,
	domain.KindDuplicateIdentity:  http.StatusConflict,
	domain.KindInvalidCredential:  http.StatusUnauthorized,
	domain.KindAccountDisabled:    http.StatusForbidden,
	domain.KindOperationDisabled:  http.StatusForbidden,
	domain.KindRateLimited:        http.StatusTooManyRequests,
	domain.KindNetworkUnavailable: http.StatusServiceUnavailable,
	domain.KindUnknown:            http.StatusInternalServerError,
}

// writeError maps err to a status and an ErrorResponse and aborts the request
func writeError(c *gin.Context, err error) {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		status, ok := kindStatus[authErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.AbortWithStatusJSON(status, dto.ErrorResponse{
			Error:   http.StatusText(status),
			Message: authErr.Message,
			Kind:    string(authErr.Kind),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrWordNotFound),
		errors.Is(err, domain.ErrPostNotFound),
		errors.Is(err, domain.ErrQuizNotFound):
		abortWith(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		abortWith(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		abortWith(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrNotSignedIn):
		abortWith(c, http.StatusUnauthorized, err.Error())
	default:
		_ = c.Error(err)
		abortWith(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

func abortWith(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
