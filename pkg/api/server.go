package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rzzdr/cds-pricing-engine/internal/market"
	"github.com/rzzdr/cds-pricing-engine/internal/risk"
	"github.com/rzzdr/cds-pricing-engine/internal/store"
	"github.com/rzzdr/cds-pricing-engine/internal/websocket"
	"github.com/rzzdr/cds-pricing-engine/pkg/metrics"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

// Config holds the configuration for the API server
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	// RateLimit is the per-client request rate; zero disables limiting
	RateLimit      float64
	RateLimitBurst int
}

// Dependencies are the services the API serves
type Dependencies struct {
	Pricing    *risk.PricingService
	Calculator *risk.Calculator
	Trades     store.TradeStore
	Market     *market.Store
	Hub        *websocket.Hub
	Recorder   *metrics.Recorder
	// Gatherer backs /metrics; nil serves the default registry
	Gatherer prometheus.Gatherer
}

// Server represents the API server
type Server struct {
	config     Config
	engine     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	log        *logger.Logger
}

// NewServer creates a new API server
func NewServer(config Config, deps Dependencies) *Server {
	// Apply defaults if needed
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}

	server := &Server{
		config:   config,
		engine:   gin.New(),
		handlers: CreateHandlers(deps),
		log:      logger.GetLogger("api.server"),
	}

	server.setupRoutes(deps)

	return server
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the API server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infof("Starting API server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("Stopping API server")
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(deps Dependencies) {
	// Apply common middleware
	s.engine.Use(ErrorMiddleware())
	s.engine.Use(LoggingMiddleware())
	if deps.Recorder != nil {
		s.engine.Use(MetricsMiddleware(deps.Recorder))
	}
	s.engine.Use(CORSMiddleware(s.config.AllowedOrigins, s.config.AllowedMethods, s.config.AllowedHeaders))
	s.engine.Use(RateLimitMiddleware(s.config.RateLimit, s.config.RateLimitBurst))

	h := s.handlers

	// Health check and metrics
	s.engine.GET("/health", h.HealthCheckHandler)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))

	v1 := s.engine.Group("/api/v1")

	// Single trade pricing
	cds := v1.Group("/cds")
	cds.POST("/price", h.PriceHandler)
	cds.POST("/sensitivity", h.SensitivityHandler)

	// Book management and revaluation
	book := v1.Group("/book")
	book.GET("/valuation", h.BookValuationHandler)
	book.GET("/trades", h.ListTradesHandler)
	book.GET("/trades/:id", h.GetTradeHandler)
	book.PUT("/trades/:id", h.PutTradeHandler)
	book.DELETE("/trades/:id", h.DeleteTradeHandler)

	// Market the book is valued against
	v1.GET("/market", h.GetMarketHandler)
	v1.PUT("/market", h.PutMarketHandler)

	// Streaming book valuations
	if deps.Hub != nil {
		s.engine.GET("/ws/book", gin.WrapF(deps.Hub.HandleWebSocket))
	}

	s.engine.NoRoute(h.NotFoundHandler)
}
