package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/veltria/internal/config"
	"github.com/example/veltria/internal/database"
	"github.com/example/veltria/internal/handlers"
	"github.com/example/veltria/internal/metrics"
	"github.com/example/veltria/internal/middleware"
	"github.com/example/veltria/internal/services"
)

// Register wires up the payment core and its HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, log zerolog.Logger) {
	store := database.NewStore(db)
	recorder := &metrics.Recorder{}

	alerts := services.NewAlertService(cfg.TelegramBotToken, cfg.TelegramAdminChat, log)
	state := services.NewPaymentStateMachine(store, log)
	screen := services.NewFraudScreen(store, alerts, log)
	builder := services.NewRequestBuilder(store, store, store, store, store, cfg.VerifiClientIP)
	gateway := services.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayTimeout, cfg.GatewayClientID, recorder, alerts, log)
	svc := services.NewPaymentService(state, store, screen, builder, gateway, store, log)

	paymentHandler := handlers.NewPaymentHandler(db, store, svc, gateway)

	api := app.Group("/api")

	payments := api.Group("/payments", middleware.AuthMiddleware(cfg))
	payments.Post("/:id/process", paymentHandler.ProcessPayment)
	payments.Post("/:id/capture", paymentHandler.CapturePayment)
	payments.Post("/:id/cancel", paymentHandler.CancelPayment)

	payouts := api.Group("/payouts", middleware.ServiceAuthMiddleware(cfg))
	payouts.Post("/accounts", paymentHandler.RegisterPayoutAccount)
}
