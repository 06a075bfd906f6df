package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/config"
	"github.com/ridhampc123-lang/mango/internal/server/handlers"
)

const requestIDHeader = "X-Request-ID"

// Handlers groups the HTTP adapters mounted under /api.
type Handlers struct {
	Farmers   *handlers.FarmerHandler
	Customers *handlers.CustomerHandler
	Farm      *handlers.FarmHandler
	Orders    *handlers.OrderHandler
	Reports   *handlers.ReportHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(cfg config.ServerConfig, h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	farmers := api.Group("/farmers")
	farmers.POST("", h.Farmers.Create)
	farmers.GET("", h.Farmers.List)
	farmers.GET("/export", h.Farmers.Export)
	farmers.POST("/purchase", h.Farmers.Purchase)
	farmers.GET("/:id", h.Farmers.Get)
	farmers.PUT("/:id", h.Farmers.Update)
	farmers.DELETE("/:id", h.Farmers.Delete)
	farmers.GET("/:id/ledger", h.Farmers.Ledger)
	farmers.POST("/:id/payment", h.Farmers.Payment)
	farmers.POST("/:id/remind", h.Farmers.Remind)

	api.POST("/batches", h.Farmers.RecordBatch)
	api.GET("/batches", h.Farmers.ListBatches)
	api.GET("/stock/varieties", h.Farmers.ListStock)
	api.GET("/stock/varieties/:variety", h.Farmers.GetStock)

	customers := api.Group("/customers")
	customers.POST("", h.Customers.Create)
	customers.GET("", h.Customers.List)
	customers.GET("/pending-balance", h.Customers.PendingBalance)
	customers.GET("/export", h.Customers.Export)
	customers.GET("/mobile/:mobile", h.Customers.GetByMobile)
	customers.GET("/:id", h.Customers.Get)
	customers.PUT("/:id", h.Customers.Update)
	customers.DELETE("/:id", h.Customers.Delete)
	customers.POST("/:id/credit", h.Customers.Credit)
	customers.POST("/:id/payment", h.Customers.Payment)
	customers.GET("/:id/transactions", h.Customers.Transactions)

	labour := api.Group("/labour")
	labour.POST("", h.Farm.CreateLabour)
	labour.GET("", h.Farm.ListLabour)
	labour.GET("/pending", h.Farm.PendingLabour)
	labour.PATCH("/pay", h.Farm.PayLabour)
	labour.GET("/:id", h.Farm.GetLabour)
	labour.DELETE("/:id", h.Farm.DeleteLabour)
	labour.PATCH("/:id/pay", h.Farm.PayLabour)

	api.POST("/expenses", h.Farm.CreateExpense)
	api.GET("/expenses", h.Farm.ListExpenses)

	orders := api.Group("/orders")
	orders.POST("", h.Orders.Create)
	orders.GET("", h.Orders.List)
	orders.GET("/export", h.Orders.Export)
	orders.GET("/:id", h.Orders.Get)
	orders.PUT("/:id", h.Orders.Update)
	orders.DELETE("/:id", h.Orders.Delete)
	orders.PATCH("/:id/payment", h.Orders.SetPaymentStatus)

	reports := api.Group("/reports")
	reports.GET("/summary", h.Reports.Summary)
	reports.GET("/daily", h.Reports.Daily)
	reports.GET("/monthly-sales", h.Reports.MonthlySales)
	reports.GET("/top-customers", h.Reports.TopCustomers)
	reports.GET("/reconciliation", h.Reports.Reconciliation)

	logger.Info("router initialized", zap.Int("routes", len(r.Routes())))
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(handlers.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String(handlers.RequestIDKey, c.GetString(handlers.RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
