package routes

import (
	"github.com/calibar/server/internal/container"
	"github.com/calibar/server/internal/handlers"
	"github.com/calibar/server/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	if container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     container.Config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	// API version 1
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "calibar-api",
			})
		})

		// public routes
		v1.GET("/bars", handlers.ListBars(container.BarService))
		v1.GET("/bars/search", handlers.SearchBarsByLocation(container.BarService))
		v1.GET("/bars/proximity", handlers.CheckProximity(container.BarService))
		v1.GET("/bars/:id", handlers.GetBar(container.BarService))
		v1.GET("/bars/:id/ratings", handlers.GetBarRatings(container.RatingService))
		v1.GET("/bars/:id/ratings/stats", handlers.GetBarRatingStats(container.RatingService))
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.Config.JWTSecret, container.Logger))

	barRoutes := protected.Group("/bars")
	{
		barRoutes.POST("/", handlers.CreateBar(container.BarService))
		barRoutes.PATCH("/:id", handlers.UpdateBar(container.BarService))
		barRoutes.DELETE("/:id", handlers.DeleteBar(container.BarService))
		barRoutes.GET("/:id/ratings/user/:userId", handlers.GetUserBarRating(container.RatingService))
	}

	ratingRoutes := protected.Group("/ratings")
	{
		ratingRoutes.POST("/", handlers.SubmitRating(container.RatingService))
		ratingRoutes.DELETE("/:id", handlers.DeleteRating(container.RatingService))
	}

	userRoutes := protected.Group("/users")
	{
		userRoutes.GET("/:id/ratings", handlers.GetUserRatings(container.RatingService))
	}

	return r
}
