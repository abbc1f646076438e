package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/calibar/server/internal/models"
	"github.com/calibar/server/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmitRatingRequest distinguishes an omitted criteria (nil pointer) from a
// supplied one; the service retains existing criteria when it is omitted on
// an update.
type SubmitRatingRequest struct {
	BarID    string           `json:"bar_id" binding:"required"`
	Value    int              `json:"value" binding:"required,min=1,max=5"`
	Review   string           `json:"review,omitempty"`
	Criteria *models.Criteria `json:"criteria,omitempty"`
}

func SubmitRating(rs *services.RatingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromContext(c)
		if !ok {
			return
		}

		var req SubmitRatingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid user ID in token"))
			return
		}
		barID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.BarID))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid bar ID"))
			return
		}

		rating, created, err := rs.Submit(c.Request.Context(), userID, barID, req.Value, req.Review, req.Criteria)
		if err != nil {
			respondError(c, err)
			return
		}

		status := http.StatusOK
		message := "Rating updated successfully"
		if created {
			status = http.StatusCreated
			message = "Rating created successfully"
		}
		c.JSON(status, gin.H{
			"success": true,
			"message": message,
			"created": created,
			"rating":  rating,
		})
	}
}

func DeleteRating(rs *services.RatingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromContext(c)
		if !ok {
			return
		}

		ratingID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid rating ID"))
			return
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid user ID in token"))
			return
		}

		if err := rs.Delete(c.Request.Context(), ratingID, userID, claims.IsAdmin()); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Rating deleted successfully"))
	}
}

func GetBarRatings(rs *services.RatingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		barID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid bar ID"))
			return
		}

		offsetInt, limitInt, ok := paginationParams(c)
		if !ok {
			return
		}

		ratings, total, err := rs.GetBarRatings(c.Request.Context(), barID, offsetInt, limitInt)
		if err != nil {
			respondError(c, err)
			return
		}

		page := (offsetInt / limitInt) + 1
		c.JSON(http.StatusOK, models.PaginatedResponse(ratings, page, limitInt, total))
	}
}

func GetBarRatingStats(rs *services.RatingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		barID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid bar ID"))
			return
		}

		stats, err := rs.GetBarStats(c.Request.Context(), barID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(stats, ""))
	}
}

func GetUserRatings(rs *services.RatingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid user ID"))
			return
		}

		offsetInt, limitInt, ok := paginationParams(c)
		if !ok {
			return
		}

		ratings, stats, total, err := rs.GetUserRatings(c.Request.Context(), userID, offsetInt, limitInt)
		if err != nil {
			respondError(c, err)
			return
		}

		page := (offsetInt / limitInt) + 1
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    ratings,
			"stats":   stats,
			"page":    page,
			"limit":   limitInt,
			"total":   total,
		})
	}
}

func GetUserBarRating(rs *services.RatingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromContext(c)
		if !ok {
			return
		}

		barID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid bar ID"))
			return
		}
		targetID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("userId")))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid user ID"))
			return
		}
		requesterID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid user ID in token"))
			return
		}

		rating, err := rs.GetUserBarRating(c.Request.Context(), barID, targetID, requesterID, claims.IsAdmin())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"rating":    rating,
			"has_rated": true,
		})
	}
}

func paginationParams(c *gin.Context) (offset, limit int, ok bool) {
	limitStr := c.DefaultQuery("limit", "10")
	offsetStr := c.DefaultQuery("offset", "0")

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid limit parameter"))
		return 0, 0, false
	}
	offset, err = strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid offset parameter"))
		return 0, 0, false
	}

	return offset, limit, true
}
