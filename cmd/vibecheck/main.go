package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/elbaradei1993/vibe-check-webapp/internal/adapter/feeds"
	"github.com/elbaradei1993/vibe-check-webapp/internal/adapter/httpapi"
	kafkaadapter "github.com/elbaradei1993/vibe-check-webapp/internal/adapter/kafka"
	"github.com/elbaradei1993/vibe-check-webapp/internal/adapter/opencage"
	"github.com/elbaradei1993/vibe-check-webapp/internal/config"
	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
	"github.com/elbaradei1993/vibe-check-webapp/internal/geocode"
	"github.com/elbaradei1993/vibe-check-webapp/internal/hazard"
	"github.com/elbaradei1993/vibe-check-webapp/internal/maplayer"
	"github.com/elbaradei1993/vibe-check-webapp/internal/observability"
	"github.com/elbaradei1993/vibe-check-webapp/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	st := store.New(db, logger, metrics)
	if err := st.Init(context.Background()); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	// Geocoding is feature-flagged via GEOCODE_API_KEY / GEOCODE_ENABLED.
	var geocoder httpapi.Geocoder
	if cfg.GeocodeEnabled {
		client := opencage.NewClient(cfg.GeocodeAPIKey, cfg.GeocodeBaseURL, cfg.GeocodeTimeout, metrics, logger)
		geocoder = geocode.NewResolver(client, st, cfg.GeocodeMinInterval, cfg.GeocodeCacheSize, metrics, logger)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("geocoding enabled",
			"cache_size", cfg.GeocodeCacheSize,
			"min_interval", cfg.GeocodeMinInterval,
		)
	} else {
		logger.Info("geocoding disabled")
	}

	feedClient := &http.Client{Timeout: cfg.HazardTimeout}
	fetchers := []hazard.SourceFetcher{
		feeds.NewUSGSEarthquakes(cfg.HazardURLs[domain.SourceEarthquake], feedClient, logger),
		feeds.NewNWSFloodAlerts(cfg.HazardURLs[domain.SourceFlood], feedClient, logger),
		feeds.NewFIRMSWildfires(cfg.HazardURLs[domain.SourceWildfire], feedClient, logger),
		feeds.NewNHCStorms(cfg.HazardURLs[domain.SourceHurricane], feedClient, logger),
		feeds.NewVolcanoActivity(cfg.HazardURLs[domain.SourceVolcano], feedClient, logger),
	}
	aggregator := hazard.New(fetchers, cfg.HazardTimeout, metrics, logger)

	composer := maplayer.NewComposer(metrics, logger)

	var publisher httpapi.ReportPublisher
	var publisherClose func() error
	if cfg.KafkaEnabled {
		p := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaReportsTopic, logger)
		publisher = p
		publisherClose = p.Close
		logger.Info("report event publishing enabled",
			"brokers", cfg.KafkaBrokers,
			"topic", cfg.KafkaReportsTopic,
		)
	} else {
		logger.Info("report event publishing disabled")
	}

	srv := httpapi.NewServer(cfg.HTTPAddr, st, geocoder, aggregator, composer, publisher, st, cfg.HazardSources, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisherClose != nil {
		if err := publisherClose(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
