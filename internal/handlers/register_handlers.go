package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/messmate/messmate_backend/cmd/docs"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/middleware"
	"github.com/messmate/messmate_backend/pkg/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) {
	// Health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	// Public authentication routes
	registerAuthRoutes(r, cfg, services.User)

	// API v1 routes behind the auth middleware
	setupAPIV1Routes(r, cfg, services)

	// Swagger routes (disabled in production)
	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to per-entity
// route registrations. Everything room-scoped nests under /rooms/:room_id.
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) {
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret))

	registerRoomRoutes(v1, services.Room)

	roomScoped := v1.Group("/rooms/:room_id")
	{
		registerPeriodRoutes(roomScoped, services.Period)
		registerMealRoutes(roomScoped, services.Meal, services.Period)
		registerExpenseRoutes(roomScoped, services.Expense, services.Period)
		registerShoppingRoutes(roomScoped, services.Shopping, services.Period)
		registerTransactionRoutes(roomScoped, services.Transaction, services.Period)
		registerSummaryRoutes(roomScoped, services.Summary, services.Period)
	}
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		// no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
