// Package gateway is the HTTP edge of the order service.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/example/bloomcart/gateway/docs"
	"github.com/example/bloomcart/pkg/config"
	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/order"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// TokenVerifier turns a bearer token into the calling actor.
type TokenVerifier interface {
	Verify(token string) (models.Actor, error)
}

type Gateway struct {
	config   *config.ServerConfig
	orders   *order.Service
	verifier TokenVerifier
	logger   *zap.Logger
	router   *gin.Engine
}

func NewGateway(cfg *config.ServerConfig, orders *order.Service, verifier TokenVerifier, logger *zap.Logger) *Gateway {
	mode := cfg.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(logger))

	g := &Gateway{
		config:   cfg,
		orders:   orders,
		verifier: verifier,
		logger:   logger,
		router:   router,
	}
	g.setupRoutes()
	return g
}

func (g *Gateway) setupRoutes() {
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := g.router.Group("/api/v1")
	orders := v1.Group("/orders", g.authenticate())
	{
		orders.POST("", g.createOrder)
		orders.GET("", g.listOrders)
		orders.GET("/available", g.listAvailable)
		orders.GET("/user/:userId", g.listByUser)
		orders.GET("/florist/:floristId", g.listByFlorist)
		orders.GET("/deliver/:deliverId", g.listByDeliver)
		orders.GET("/flower/:flowerId", g.listByFlower)
		orders.GET("/analytics/florist/:floristId", g.floristReport)
		orders.GET("/fix/florist", g.missingFlorist)
		orders.PUT("/fix/add-florist-id", g.repairFlorists)

		orders.GET("/:id", g.getOrder)
		orders.DELETE("/:id", g.deleteOrder)
		orders.PUT("/:id/status", g.updateStatus)
		orders.PUT("/:id/assign-deliver", g.assignDeliver)
		orders.PUT("/:id/florist", g.setFlorist)
		orders.POST("/:id/items", g.addItem)
		orders.PATCH("/:id/items/:flowerId", g.updateItem)
		orders.DELETE("/:id/items/:flowerId", g.removeItem)
	}

	g.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "not_found",
			"message":    "Not Found - " + c.Request.URL.Path,
			"request_id": requestID(c),
		})
	})

	docs.SwaggerInfo.BasePath = v1.BasePath()
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler exposes the router for embedding and tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (g *Gateway) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              g.config.Addr(),
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("Gateway starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	g.logger.Info("Gateway shutting down")
	return srv.Shutdown(shutdownCtx)
}
