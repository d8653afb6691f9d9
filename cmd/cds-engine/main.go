package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rzzdr/cds-pricing-engine/config"
	"github.com/rzzdr/cds-pricing-engine/internal/kafka"
	"github.com/rzzdr/cds-pricing-engine/internal/pricer"
	"github.com/rzzdr/cds-pricing-engine/internal/risk"
	"github.com/rzzdr/cds-pricing-engine/pkg/metrics"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

var (
	configFile = flag.String("config", "", "Path to configuration file (overrides CDS_CONFIG_PATH)")
)

func main() {
	flag.Parse()
	if *configFile != "" {
		os.Setenv("CDS_CONFIG_PATH", *configFile)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger("cds-engine.main").Fatalf("Failed to load configuration: %v", err)
	}

	logger.InitWithFile(cfg.App.LogLevel, cfg.App.Environment, logger.FileOptions{
		Path:       cfg.App.LogFile.Path,
		MaxSizeMB:  cfg.App.LogFile.MaxSizeMB,
		MaxBackups: cfg.App.LogFile.MaxBackups,
		MaxAgeDays: cfg.App.LogFile.MaxAgeDays,
	})
	log := logger.GetLogger("cds-engine.main")
	defer log.Sync()
	log.Info("Starting CDS pricing engine")

	formula, err := pricer.ParseFormula(cfg.Pricer.Formula)
	if err != nil {
		log.Fatalf("Invalid pricer formula: %v", err)
	}
	priceType, err := pricer.ParsePriceType(cfg.Pricer.PriceType)
	if err != nil {
		log.Fatalf("Invalid price type: %v", err)
	}

	// Canceled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder(nil)

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port, nil)
		go func() {
			if err := promServer.Start(); err != nil {
				log.Errorf("Prometheus server error: %v", err)
			}
		}()
	}

	kafkaConfig := kafka.Config{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.Consumer.GroupID,
		RequestTopic: cfg.Kafka.Topics.PricingRequests,
		ResultTopic:  cfg.Kafka.Topics.PricingResults,
		Consumer: kafka.ConsumerConfig{
			MinBytes:        cfg.Kafka.Consumer.MinBytes,
			MaxBytes:        cfg.Kafka.Consumer.MaxBytes,
			MaxWait:         cfg.Kafka.Consumer.MaxWait,
			CommitInterval:  cfg.Kafka.Consumer.CommitInterval,
			RetryBackoff:    cfg.Kafka.Consumer.RetryBackoff,
			MaxRetryBackoff: cfg.Kafka.Consumer.MaxRetryBackoff,
		},
		Producer: kafka.ProducerConfig{
			RequiredAcks: cfg.Kafka.Producer.RequiredAcks,
			Compression:  cfg.Kafka.Producer.Compression,
			BatchSize:    cfg.Kafka.Producer.BatchSize,
			BatchTimeout: cfg.Kafka.Producer.BatchTimeout,
			MaxAttempts:  cfg.Kafka.Producer.MaxAttempts,
		},
		Breaker: kafka.BreakerConfig{
			MaxRequests:         cfg.Kafka.CircuitBreaker.MaxRequests,
			Interval:            cfg.Kafka.CircuitBreaker.Interval,
			Timeout:             cfg.Kafka.CircuitBreaker.Timeout,
			ConsecutiveFailures: cfg.Kafka.CircuitBreaker.ConsecutiveFailures,
		},
	}

	consumer := kafka.NewConsumer(kafkaConfig, recorder)
	producer := kafka.NewProducer(kafkaConfig, recorder)
	pricing := risk.NewPricingService(formula, priceType, recorder)
	worker := kafka.NewPricingWorker(consumer, producer, pricing)

	log.Infof("Consuming %s, publishing to %s", kafkaConfig.RequestTopic, kafkaConfig.ResultTopic)
	if err := worker.Run(ctx); err != nil {
		log.Errorf("Pricing worker stopped: %v", err)
	}

	if err := consumer.Close(); err != nil {
		log.Errorf("Consumer shutdown error: %v", err)
	}
	if err := producer.Close(); err != nil {
		log.Errorf("Producer shutdown error: %v", err)
	}

	if promServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()
		if err := promServer.Stop(shutdownCtx); err != nil {
			log.Errorf("Prometheus server shutdown error: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
