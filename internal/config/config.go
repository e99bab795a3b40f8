// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// SQLite database path. ":memory:" is accepted for throwaway runs.
	DBPath string

	// Geocoding provider configuration.
	GeocodeAPIKey      string
	GeocodeEnabled     bool
	GeocodeBaseURL     string
	GeocodeTimeout     time.Duration
	GeocodeMinInterval time.Duration
	GeocodeCacheSize   int

	// Hazard feed configuration.
	HazardTimeout time.Duration
	HazardSources []domain.SourceKind
	HazardURLs    map[domain.SourceKind]string

	// Kafka report-event publishing (optional; enabled by KAFKA_BROKERS).
	KafkaBrokers      []string
	KafkaReportsTopic string
	KafkaEnabled      bool
}

// Default feed endpoints; each can be overridden per source via
// HAZARD_<SOURCE>_URL for testing or mirrored deployments.
var defaultHazardURLs = map[domain.SourceKind]string{
	domain.SourceEarthquake: "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson",
	domain.SourceFlood:      "https://api.weather.gov/alerts/active?event=Flood%20Warning",
	domain.SourceWildfire:   "https://firms.modaps.eosdis.nasa.gov/data/active_fire/suomi-npp-viirs-c2/csv/SUOMI_VIIRS_C2_Global_24h.csv",
	domain.SourceHurricane:  "https://www.nhc.noaa.gov/CurrentStorms.xml",
	domain.SourceVolcano:    "https://volcanoes.usgs.gov/feeds/activity.geojson",
}

// Load reads configuration from environment variables, applying defaults
// where unset. Invalid values fail startup with the variable named.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := parseDurationEnv("GEOCODE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	geocodeMinInterval, err := parseDurationEnv("GEOCODE_MIN_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	hazardTimeout, err := parseDurationEnv("HAZARD_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntEnv("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	sources, err := parseSources(envOrDefault("HAZARD_SOURCES", "earthquake,flood,wildfire,hurricane,volcano"))
	if err != nil {
		return nil, err
	}

	urls := make(map[domain.SourceKind]string, len(defaultHazardURLs))
	for kind, u := range defaultHazardURLs {
		key := "HAZARD_" + strings.ToUpper(string(kind)) + "_URL"
		urls[kind] = envOrDefault(key, u)
	}

	geocodeKey := os.Getenv("GEOCODE_API_KEY")
	geocodeEnabled := geocodeKey != ""
	if v := os.Getenv("GEOCODE_ENABLED"); v != "" {
		geocodeEnabled = v == "true"
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		DBPath:          envOrDefault("DB_PATH", "vibe.db"),

		GeocodeAPIKey:      geocodeKey,
		GeocodeEnabled:     geocodeEnabled,
		GeocodeBaseURL:     envOrDefault("GEOCODE_BASE_URL", "https://api.opencagedata.com/geocode/v1/json"),
		GeocodeTimeout:     geocodeTimeout,
		GeocodeMinInterval: geocodeMinInterval,
		GeocodeCacheSize:   cacheSize,

		HazardTimeout: hazardTimeout,
		HazardSources: sources,
		HazardURLs:    urls,

		KafkaBrokers:      brokers,
		KafkaReportsTopic: envOrDefault("KAFKA_REPORTS_TOPIC", "vibe-reports"),
		KafkaEnabled:      kafkaEnabled,
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.GeocodeEnabled && cfg.GeocodeAPIKey == "" {
		return nil, errors.New("GEOCODE_ENABLED is true but GEOCODE_API_KEY is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseSources(s string) ([]domain.SourceKind, error) {
	var kinds []domain.SourceKind
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kind, err := domain.ParseSourceKind(p)
		if err != nil {
			return nil, fmt.Errorf("invalid HAZARD_SOURCES: %w", err)
		}
		kinds = append(kinds, kind)
	}
	if len(kinds) == 0 {
		return nil, errors.New("HAZARD_SOURCES must name at least one source")
	}
	return kinds, nil
}
