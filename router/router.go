package router

import (
	"github.com/NomadCrew/nomad-crew-settlement/config"
	"github.com/NomadCrew/nomad-crew-settlement/handlers"
	"github.com/NomadCrew/nomad-crew-settlement/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config             *config.Config
	JWTValidator       middleware.Validator
	SettlementHandler  *handlers.SettlementHandler
	PaymentHandler     *handlers.PaymentHandler
	EventStatusHandler *handlers.EventStatusHandler
	HealthHandler      *handlers.HealthHandler
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTValidator))
	{
		eventRoutes := v1.Group("/events/:id")
		{
			eventRoutes.GET("/balances", deps.SettlementHandler.GetBalancesHandler)
			eventRoutes.GET("/lock", deps.EventStatusHandler.GetLockStatusHandler)
			eventRoutes.GET("/editable", deps.EventStatusHandler.EditableHandler)
			eventRoutes.POST("/stale", deps.EventStatusHandler.MarkStaleHandler)
			eventRoutes.POST("/close", deps.EventStatusHandler.CloseEventHandler)

			planRoutes := eventRoutes.Group("/settlements")
			{
				planRoutes.GET("", deps.SettlementHandler.ListSettlementsHandler)
				planRoutes.GET("/pending-total", deps.SettlementHandler.GetPendingTotalHandler)
				planRoutes.POST("/generate", deps.SettlementHandler.GenerateSettlementHandler)
				planRoutes.POST("/regenerate", deps.SettlementHandler.RegenerateSettlementHandler)
				planRoutes.POST("/approve", deps.SettlementHandler.ApproveSettlementReviewHandler)
			}
		}

		paymentRoutes := v1.Group("/settlements/:settlementId")
		{
			paymentRoutes.POST("/initiate", deps.PaymentHandler.InitiatePaymentHandler)
			paymentRoutes.POST("/retry", deps.PaymentHandler.RetryPaymentHandler)
			paymentRoutes.POST("/approve", deps.PaymentHandler.ApprovePaymentHandler)
			paymentRoutes.POST("/reject", deps.PaymentHandler.RejectPaymentHandler)
			paymentRoutes.POST("/mark-paid", deps.PaymentHandler.MarkPaidHandler)
		}

		v1.POST("/splits/preview", deps.SettlementHandler.PreviewSplitsHandler)
	}

	return r
}
