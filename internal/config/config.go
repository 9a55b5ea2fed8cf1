package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr string
	AlertIndex        string
	AggregationIndex  string
}

// Brokers carries the remote broker endpoints and tokens. Tokens come
// from the environment only; adapters never embed them.
type Brokers struct {
	LasairURL    string
	LasairToken  string
	FinkURL      string
	FinkToken    string
	AlerceURL    string
	AlerceToken  string
	FetchTimeout time.Duration
}

// Harvester configures the broker polling service.
type Harvester struct {
	Common
	Brokers
	Enabled        []string
	Interval       time.Duration
	WindowDays     float64
	MaxAlerts      int
	DedupeCapacity int
	DedupeTTL      time.Duration
}

// Worker holds configuration for the Kafka -> aggregation worker.
type Worker struct {
	Common
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaConsumer string
	TaxonomyPath  string
	BatchSize     int
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr: getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		AlertIndex:        getEnv("ALERT_INDEX", "alerts"),
		AggregationIndex:  getEnv("AGGREGATION_INDEX", "classification_trees"),
	}
}

func loadBrokers() Brokers {
	return Brokers{
		LasairURL:    getEnv("LASAIR_URL", ""),
		LasairToken:  getEnv("LASAIR_TOKEN", ""),
		FinkURL:      getEnv("FINK_URL", ""),
		FinkToken:    getEnv("FINK_TOKEN", ""),
		AlerceURL:    getEnv("ALERCE_URL", ""),
		AlerceToken:  getEnv("ALERCE_TOKEN", ""),
		FetchTimeout: getDuration("BROKER_FETCH_TIMEOUT", "30s"),
	}
}

// LoadHarvester builds a Harvester config from environment variables.
func LoadHarvester() (*Harvester, error) {
	c := &Harvester{
		Common:         loadCommon(),
		Brokers:        loadBrokers(),
		Enabled:        splitAndTrim(getEnv("HARVESTER_BROKERS", "Lasair,Fink,ALeRCE")),
		Interval:       getDuration("HARVESTER_INTERVAL", "15m"),
		WindowDays:     getFloat("HARVESTER_WINDOW_DAYS", 1.0),
		MaxAlerts:      getInt("HARVESTER_MAX_ALERTS", 100),
		DedupeCapacity: getInt("HARVESTER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("HARVESTER_DEDUPE_TTL", "24h"),
	}

	if len(c.Enabled) == 0 {
		return nil, fmt.Errorf("HARVESTER_BROKERS must name at least one broker")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("HARVESTER_INTERVAL must be positive")
	}
	if c.WindowDays <= 0 {
		return nil, fmt.Errorf("HARVESTER_WINDOW_DAYS must be positive")
	}
	if c.MaxAlerts <= 0 {
		return nil, fmt.Errorf("HARVESTER_MAX_ALERTS must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("HARVESTER_DEDUPE_CAPACITY must be positive")
	}
	if c.FetchTimeout <= 0 {
		return nil, fmt.Errorf("BROKER_FETCH_TIMEOUT must be positive")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:        loadCommon(),
		KafkaBrokers:  splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "classifications_raw"),
		KafkaConsumer: getEnv("KAFKA_CONSUMER_GROUP", "aggregation-worker"),
		TaxonomyPath:  getEnv("TAXONOMY_PATH", ""),
		BatchSize:     getInt("WORKER_BATCH_SIZE", 10),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
