// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"clinicbook/internal/auth"
	"clinicbook/internal/catalog"
	"clinicbook/internal/idempotency"
	"clinicbook/internal/notifications"
	"clinicbook/internal/payments"
	"clinicbook/internal/reservations"
	"clinicbook/internal/shared/config"
	"clinicbook/internal/shared/database"
	"clinicbook/internal/slotindex"
	"clinicbook/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	gateway   payments.Gateway
	publisher notifications.Publisher

	reservationService reservations.Service
}

// NewRouter creates a new router instance. publisher may be nil when
// Kafka is disabled.
func NewRouter(cfg *config.Config, db *database.DB, gateway payments.Gateway, publisher notifications.Publisher) *Router {
	return &Router{
		config:    cfg,
		db:        db,
		gateway:   gateway,
		publisher: publisher,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	reservations.RegisterValidators()

	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupAuthRoutes(api)
		r.setupBookingRoutes(api)
	}
}

// ReservationService exposes the wired reservation service so the
// server can hang the expiry reaper off the same instance.
func (r *Router) ReservationService() reservations.Service {
	return r.reservationService
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "clinicbook-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "clinicbook-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupAuthRoutes configures patient authentication routes
func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	authRepo := auth.NewRepository(r.db.GetPostgreSQL())
	authService := auth.NewService(authRepo, r.config)
	authController := auth.NewController(authService)
	authRouter := auth.NewRouter(authController, r.config)

	authRouter.SetupRoutes(rg)
}

// setupBookingRoutes wires the catalog and reservation stacks. They
// share one slot index so availability reads and claim writes see the
// same table.
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	gormDB := r.db.GetPostgreSQL()

	cacheService := cache.NewService(r.db.GetRedis())
	slots := slotindex.NewIndex(gormDB)

	catalogRepo := catalog.NewRepository(gormDB)
	catalogService := catalog.NewService(catalogRepo, cacheService, r.config.Redis.CacheTTL)
	catalogController := catalog.NewController(catalogService, slots)
	catalog.SetupCatalogRoutes(rg, catalogController)

	idemStore := idempotency.NewRedisStore(r.db.GetRedis())

	reservationRepo := reservations.NewRepository(gormDB)
	r.reservationService = reservations.NewService(
		reservationRepo,
		slots,
		r.gateway,
		catalogService,
		idemStore,
		r.publisher,
		reservations.Config{
			HoldTimeout:       r.config.Booking.HoldTimeout,
			IdempotencyWindow: r.config.Booking.IdempotencyWindow,
			ReaperBatchSize:   r.config.Booking.ReaperBatchSize,
			Currency:          r.config.Booking.Currency,
		},
	)
	reservationController := reservations.NewController(r.reservationService)
	reservations.SetupReservationRoutes(rg, reservationController)
}
