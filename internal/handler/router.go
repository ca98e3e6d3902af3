package handler

import (
	"campuswallet/internal/config"
	"campuswallet/internal/infrastructure/lock"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter wires the API routes.
func SetupRouter(db *gorm.DB, locks lock.Manager, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, locks, cfg)

	api := r.Group("/api/v1")
	{
		account := api.Group("/account")
		{
			account.POST("/create", h.CreateAccount)
			account.POST("/active", h.SetAccountActive)
		}

		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", h.GetBalance)
			wallet.POST("/topup", h.TopUp)
			wallet.POST("/purchase", h.Purchase)
			wallet.POST("/transfer", h.Transfer)
			wallet.GET("/history", h.History)
		}

		ledger := api.Group("/ledger")
		{
			ledger.GET("/entry", h.GetEntry)
			ledger.GET("/transfer", h.GetTransfer)
			ledger.POST("/entry/cancel", h.CancelEntry)
		}

		stats := api.Group("/stats")
		{
			stats.GET("/summary", h.Statistics)
			stats.GET("/daily", h.DailySummary)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
