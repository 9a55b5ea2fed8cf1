package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/nightwatch-obs/alert-radar/internal/config"
	"github.com/nightwatch-obs/alert-radar/internal/elasticsearch"
	"github.com/nightwatch-obs/alert-radar/internal/logger"
	"github.com/nightwatch-obs/alert-radar/internal/models"
	"github.com/nightwatch-obs/alert-radar/internal/taxonomy"
)

// classificationBatch is the wire format produced by the classification
// collectors: all verdicts gathered for one object since the last
// aggregation, oldest first.
type classificationBatch struct {
	ObjectID string                        `json:"object_id"`
	Records  []models.ClassificationRecord `json:"records"`
}

type treeIndexer interface {
	IndexAggregation(ctx context.Context, doc models.AggregationDoc) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	table, err := loadTable(cfg.TaxonomyPath)
	if err != nil {
		// Taxonomy problems are fatal at startup, never at aggregation
		// time.
		log.Error("load taxonomy", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.AlertIndex, cfg.AggregationIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // Disable auto-commit; manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.KafkaTopic+"_dlq"),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, esClient, table, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			if sendToDLQ(ctx, log, dlqWriter, msg, err) {
				if err := reader.CommitMessages(ctx, msg); err != nil {
					log.Error("commit failed message to dlq", slog.Any("err", err))
				}
			} else {
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
			}
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

func loadTable(path string) (*taxonomy.Table, error) {
	if path == "" {
		return taxonomy.Default(), nil
	}
	return taxonomy.Load(path)
}

// processMessage aggregates one object's classification batch and
// indexes the resulting tree.
func processMessage(ctx context.Context, log *slog.Logger, indexer treeIndexer, table *taxonomy.Table, msg kafka.Message) error {
	var batch classificationBatch
	if err := json.Unmarshal(msg.Value, &batch); err != nil {
		return err
	}

	if strings.TrimSpace(batch.ObjectID) == "" {
		return errors.New("batch has no object_id")
	}
	if len(batch.Records) == 0 {
		return errors.New("batch has no records")
	}

	tree, err := table.Aggregate(batch.Records)
	if err != nil {
		return err
	}

	doc := models.AggregationDoc{
		ObjectID:  batch.ObjectID,
		RunID:     uuid.NewString(),
		IndexedAt: time.Now().UTC(),
		Nodes:     tree.Nodes(),
	}

	if err := indexer.IndexAggregation(ctx, doc); err != nil {
		return err
	}

	log.Info("indexed aggregation tree",
		slog.String("object_id", batch.ObjectID),
		slog.String("run_id", doc.RunID),
		slog.Int("records", len(batch.Records)),
		slog.Int("nodes", tree.Len()),
	)
	return nil
}

// sendToDLQ forwards a failed message to the dead-letter topic with
// error context, retrying with exponential backoff. It reports whether
// the write eventually succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, writer *kafka.Writer, msg kafka.Message, cause error) bool {
	dlqMsg := kafka.Message{
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range 5 {
		if err := writer.WriteMessages(ctx, dlqMsg); err == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		} else {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Warn("DLQ write failed, retrying",
				slog.Any("err", err),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				log.Info("context canceled during DLQ retry")
				return false
			}
		}
	}
	return false
}
