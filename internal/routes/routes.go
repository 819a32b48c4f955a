package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"childcare-reconciliation-backend/internal/config"
	"childcare-reconciliation-backend/internal/handlers"
	"childcare-reconciliation-backend/internal/repository"
	"childcare-reconciliation-backend/internal/services/matching"
	"childcare-reconciliation-backend/internal/services/notifications"
	"childcare-reconciliation-backend/internal/services/statements"
	"childcare-reconciliation-backend/internal/workers"
)

// RegisterRoutes wires repositories, services and handlers onto the
// router. The returned pool must be stopped on shutdown.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, log zerolog.Logger) *workers.Pool {
	payerRepo := repository.NewPayerRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statementRepo := repository.NewStatementRepository(db)

	engine := matching.NewEngine(payerRepo, transactionRepo, paymentRepo, log)

	parser := statements.NewParser(statements.PlainTextExtractor{}, log)
	statementService := statements.NewService(parser, statementRepo, transactionRepo, engine, log)

	pool := workers.NewPool(cfg.WorkerCount, cfg.QueueSize, log)
	pool.Start()
	notificationService := notifications.NewService(notificationRepo, transactionRepo, engine, pool, log)
	senderValidator := notifications.NewSenderValidator(cfg.AllowedSenders)

	statementHandler := handlers.NewStatementHandler(statementService)
	webhookHandler := handlers.NewWebhookHandler(notificationService, senderValidator, cfg.WebhookAPIKey)
	transactionHandler := handlers.NewTransactionHandler(engine)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	stmts := api.Group("/statements")
	stmts.POST("/upload", statementHandler.Upload)
	stmts.GET("", statementHandler.List)
	stmts.GET("/:id", statementHandler.Get)

	webhook := api.Group("/webhook")
	webhook.POST("/myupdates", webhookHandler.HandleNotification)
	webhook.GET("/myupdates/stats", webhookHandler.Stats)
	webhook.POST("/myupdates/retry", webhookHandler.RetryFailed)
	webhook.GET("/health", webhookHandler.Health)

	tx := api.Group("/transactions")
	tx.GET("/unmatched", transactionHandler.Unmatched)
	tx.GET("/unmatched/count", transactionHandler.UnmatchedCount)
	tx.POST("/match-all", transactionHandler.MatchAll)
	tx.POST("/:id/match", transactionHandler.ManualMatch)

	return pool
}
