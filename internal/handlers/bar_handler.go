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

func CreateBar(bs *services.BarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromContext(c)
		if !ok {
			return
		}

		var bar models.Bar
		if err := c.ShouldBindJSON(&bar); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		creatorID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid user ID in token"))
			return
		}

		created, err := bs.CreateBar(c.Request.Context(), &bar, creatorID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(created, "Calisthenics bar created successfully"))
	}
}

func GetBar(bs *services.BarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		barID, err := parseIDParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid bar ID format"))
			return
		}

		bar, stats, err := bs.GetBar(c.Request.Context(), barID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"bar":     bar,
			"ratings": stats,
		})
	}
}

func ListBars(bs *services.BarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		offsetInt, limitInt, ok := paginationParams(c)
		if !ok {
			return
		}

		filters := models.BarFilters{}
		if eq := c.Query("equipment"); eq != "" {
			for _, t := range strings.Split(eq, ",") {
				switch t {
				case "pull_up_bar", "parallel_bars", "wall_bars", "rings":
					filters.Equipment = append(filters.Equipment, t)
				}
			}
		}
		if ft := c.Query("features"); ft != "" {
			for _, t := range strings.Split(ft, ",") {
				switch t {
				case "parking", "lighting", "accessibility", "covered":
					filters.Features = append(filters.Features, t)
				}
			}
		}
		if mr := c.Query("min_rating"); mr != "" {
			minRating, err := strconv.ParseFloat(mr, 64)
			if err != nil || minRating < 0 || minRating > 5 {
				c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid min_rating parameter"))
				return
			}
			filters.MinRating = minRating
		}

		bars, total, err := bs.ListBars(c.Request.Context(), filters, offsetInt, limitInt)
		if err != nil {
			respondError(c, err)
			return
		}

		page := (offsetInt / limitInt) + 1
		c.JSON(http.StatusOK, models.PaginatedResponse(bars, page, limitInt, total))
	}
}

func SearchBarsByLocation(bs *services.BarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		latStr := c.Query("latitude")
		lonStr := c.Query("longitude")
		if latStr == "" || lonStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "latitude and longitude are required",
				"example": "/bars/search?latitude=-33.4489&longitude=-70.6693&radius=10",
			})
			return
		}

		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid latitude parameter"))
			return
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid longitude parameter"))
			return
		}

		radius := services.DefaultSearchRadiusKm
		if r := c.Query("radius"); r != "" {
			radius, err = strconv.ParseFloat(r, 64)
			if err != nil || radius <= 0 {
				c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid radius parameter"))
				return
			}
		}

		results, err := bs.SearchByLocation(c.Request.Context(), lat, lon, radius)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"search_center": gin.H{"latitude": lat, "longitude": lon},
			"radius":        radius,
			"found":         len(results),
			"bars":          results,
		})
	}
}

func CheckProximity(bs *services.BarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid latitude parameter"))
			return
		}
		lon, err := strconv.ParseFloat(c.Query("longitude"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid longitude parameter"))
			return
		}

		result, err := bs.CheckProximity(c.Request.Context(), lat, lon)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(result, ""))
	}
}

func UpdateBar(bs *services.BarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromContext(c)
		if !ok {
			return
		}

		barID, err := parseIDParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid bar ID format"))
			return
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid user ID in token"))
			return
		}

		var update services.BarUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		bar, err := bs.UpdateBar(c.Request.Context(), barID, userID, claims.IsAdmin(), update)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(bar, "Bar updated successfully"))
	}
}

func DeleteBar(bs *services.BarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromContext(c)
		if !ok {
			return
		}

		barID, err := parseIDParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid bar ID format"))
			return
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid user ID in token"))
			return
		}

		if err := bs.DeleteBar(c.Request.Context(), barID, userID, claims.IsAdmin()); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Bar deleted successfully"))
	}
}

// parseIDParam normalizes an incoming id: trims spaces and surrounding quotes
// which may occur when clients pass values as JSON strings or templates.
func parseIDParam(c *gin.Context, name string) (primitive.ObjectID, error) {
	id := c.Param(name)
	id = strings.TrimSpace(id)
	id = strings.Trim(id, "\"'")
	return primitive.ObjectIDFromHex(id)
}
