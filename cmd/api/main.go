package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rzzdr/cds-pricing-engine/config"
	"github.com/rzzdr/cds-pricing-engine/internal/market"
	"github.com/rzzdr/cds-pricing-engine/internal/pricer"
	"github.com/rzzdr/cds-pricing-engine/internal/risk"
	"github.com/rzzdr/cds-pricing-engine/internal/store"
	"github.com/rzzdr/cds-pricing-engine/internal/websocket"
	"github.com/rzzdr/cds-pricing-engine/pkg/api"
	"github.com/rzzdr/cds-pricing-engine/pkg/metrics"
	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

var (
	configFile = flag.String("config", "", "Path to configuration file (overrides CDS_CONFIG_PATH)")
)

func main() {
	// Parse command line flags
	flag.Parse()
	if *configFile != "" {
		os.Setenv("CDS_CONFIG_PATH", *configFile)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger("api.main").Fatalf("Failed to load configuration: %v", err)
	}

	logger.InitWithFile(cfg.App.LogLevel, cfg.App.Environment, logger.FileOptions{
		Path:       cfg.App.LogFile.Path,
		MaxSizeMB:  cfg.App.LogFile.MaxSizeMB,
		MaxBackups: cfg.App.LogFile.MaxBackups,
		MaxAgeDays: cfg.App.LogFile.MaxAgeDays,
	})
	log := logger.GetLogger("api.main")
	defer log.Sync()
	log.Infof("Starting %s API service (%s)", cfg.App.Name, cfg.App.Environment)

	formula, err := pricer.ParseFormula(cfg.Pricer.Formula)
	if err != nil {
		log.Fatalf("Invalid pricer formula: %v", err)
	}
	priceType, err := pricer.ParsePriceType(cfg.Pricer.PriceType)
	if err != nil {
		log.Fatalf("Invalid price type: %v", err)
	}

	// Create a context that will be canceled on program termination
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics recorder
	recorder := metrics.NewRecorder(nil)

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled && cfg.Metrics.Prometheus.Port != cfg.API.Port {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port, nil)
		go func() {
			if err := promServer.Start(); err != nil {
				log.Errorf("Prometheus server error: %v", err)
			}
		}()
	}

	trades := store.NewInMemoryTradeStore()
	marketStore := market.NewStore()
	if cfg.Pricer.MarketFile != "" {
		if err := loadMarket(marketStore, cfg.Pricer.MarketFile); err != nil {
			log.Fatalf("Failed to load market file %s: %v", cfg.Pricer.MarketFile, err)
		}
	}

	pricing := risk.NewPricingService(formula, priceType, recorder)
	calculator := risk.NewCalculator(risk.CalculatorConfig{
		Workers:   cfg.Pricer.Workers,
		CS01Bump:  cfg.Pricer.CS01Bump,
		PriceType: priceType,
	}, pricing.DefaultPricer(), trades, marketStore, recorder)

	hub := websocket.NewHub(calculator, cfg.API.BookBroadcastInterval, recorder)
	go hub.Run(ctx)

	server := api.NewServer(api.Config{
		Host:           cfg.API.Host,
		Port:           cfg.API.Port,
		ReadTimeout:    cfg.API.ReadTimeout,
		WriteTimeout:   cfg.API.WriteTimeout,
		AllowedOrigins: cfg.API.CORS.AllowedOrigins,
		AllowedMethods: cfg.API.CORS.AllowedMethods,
		AllowedHeaders: cfg.API.CORS.AllowedHeaders,
		RateLimit:      cfg.API.RateLimit.RequestsPerSecond,
		RateLimitBurst: cfg.API.RateLimit.Burst,
	}, api.Dependencies{
		Pricing:    pricing,
		Calculator: calculator,
		Trades:     trades,
		Market:     marketStore,
		Hub:        hub,
		Recorder:   recorder,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
	case err := <-errCh:
		if err != nil {
			log.Errorf("API server error: %v", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}
	if promServer != nil {
		if err := promServer.Stop(shutdownCtx); err != nil {
			log.Errorf("Prometheus server shutdown error: %v", err)
		}
	}

	log.Info("Shutdown complete")
}

func loadMarket(s *market.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snapshot models.MarketSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	return s.Update(snapshot)
}
