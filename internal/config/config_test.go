package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nightwatch-obs/alert-radar/internal/config"
)

func TestLoadHarvesterDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("ALERT_INDEX", "")
	t.Setenv("AGGREGATION_INDEX", "")
	t.Setenv("HARVESTER_BROKERS", "")

	cfg, err := config.LoadHarvester()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "alerts", cfg.AlertIndex)
	require.Equal(t, "classification_trees", cfg.AggregationIndex)
	require.Equal(t, []string{"Lasair", "Fink", "ALeRCE"}, cfg.Enabled)
	require.Equal(t, 15*time.Minute, cfg.Interval)
	require.Equal(t, 1.0, cfg.WindowDays)
	require.Equal(t, 100, cfg.MaxAlerts)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout)
	require.Empty(t, cfg.LasairToken)
}

func TestLoadHarvesterOverrides(t *testing.T) {
	t.Setenv("HARVESTER_BROKERS", "Lasair, Fink")
	t.Setenv("HARVESTER_INTERVAL", "5m")
	t.Setenv("HARVESTER_WINDOW_DAYS", "0.5")
	t.Setenv("HARVESTER_MAX_ALERTS", "25")
	t.Setenv("HARVESTER_DEDUPE_CAPACITY", "500")
	t.Setenv("HARVESTER_DEDUPE_TTL", "48h")
	t.Setenv("LASAIR_URL", "http://lasair.test/api")
	t.Setenv("LASAIR_TOKEN", "tok-123")
	t.Setenv("BROKER_FETCH_TIMEOUT", "5s")

	cfg, err := config.LoadHarvester()
	require.NoError(t, err)

	require.Equal(t, []string{"Lasair", "Fink"}, cfg.Enabled)
	require.Equal(t, 5*time.Minute, cfg.Interval)
	require.Equal(t, 0.5, cfg.WindowDays)
	require.Equal(t, 25, cfg.MaxAlerts)
	require.Equal(t, 500, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, "http://lasair.test/api", cfg.LasairURL)
	require.Equal(t, "tok-123", cfg.LasairToken)
	require.Equal(t, 5*time.Second, cfg.FetchTimeout)
}

func TestLoadWorker(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-a:29092,broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "custom_topic")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("TAXONOMY_PATH", "/etc/radar/taxonomy.yaml")
	t.Setenv("WORKER_BATCH_SIZE", "3")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Len(t, cfg.KafkaBrokers, 2)
	require.Equal(t, "broker-a:29092", cfg.KafkaBrokers[0])
	require.Equal(t, "custom_topic", cfg.KafkaTopic)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, "/etc/radar/taxonomy.yaml", cfg.TaxonomyPath)
	require.Equal(t, 3, cfg.BatchSize)
}

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")
	t.Setenv("TAXONOMY_PATH", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "classifications_raw", cfg.KafkaTopic)
	require.Equal(t, "aggregation-worker", cfg.KafkaConsumer)
	require.Empty(t, cfg.TaxonomyPath)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
}

func TestLoadHarvesterRejectsEmptyBrokerList(t *testing.T) {
	t.Setenv("HARVESTER_BROKERS", " , ,")

	_, err := config.LoadHarvester()
	require.Error(t, err)
}
