package handlers

import (
	"errors"
	"net/http"

	"github.com/calibar/server/internal/helpers"
	"github.com/calibar/server/internal/models"
	"github.com/gin-gonic/gin"
)

// respondError translates the service error taxonomy into HTTP statuses.
// Proximity conflicts carry the nearby bars so the client can show them.
func respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	var conflictErr *models.ProximityConflictError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse(validationErr.Error()))
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"success":     false,
			"error":       "there's already a bar registered very close to this location",
			"nearby_bars": conflictErr.Nearby,
		})
	case errors.Is(err, models.ErrAlreadyDeleted):
		c.JSON(http.StatusBadRequest, models.ErrorResponse(models.ErrAlreadyDeleted.Error()))
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse(err.Error()))
	case errors.Is(err, models.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, models.ErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
	}
}

func claimsFromContext(c *gin.Context) (*helpers.Claims, bool) {
	userClaims, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
		return nil, false
	}

	claims, ok := userClaims.(*helpers.Claims)
	if !ok {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("invalid user claims"))
		return nil, false
	}

	return claims, true
}
