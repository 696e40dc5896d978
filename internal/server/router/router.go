package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.RegistryHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/identities/verify", handler.VerifyIdentity)
		v1.GET("/identities/:id/verified", handler.IsVerified)

		v1.POST("/batches", handler.RegisterBatch)
		v1.GET("/batches/:batchNumber", handler.GetBatch)

		v1.POST("/products", handler.RegisterProduct)
		v1.GET("/products/:qr", handler.GetProduct)
		v1.POST("/products/:qr/verify", handler.VerifyProduct)
		v1.GET("/products/:qr/verified", handler.IsProductVerified)
		v1.POST("/products/:qr/steps", handler.AddSupplyChainStep)
		v1.GET("/products/:qr/history", handler.GetSupplyChainHistory)
		v1.GET("/products/:qr/transactions", handler.GetTransactions)

		v1.POST("/transactions", handler.RecordTransaction)

		v1.POST("/admin/pause", handler.Pause)
		v1.POST("/admin/unpause", handler.Unpause)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
