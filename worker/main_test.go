package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/nightwatch-obs/alert-radar/internal/logger"
	"github.com/nightwatch-obs/alert-radar/internal/models"
	"github.com/nightwatch-obs/alert-radar/internal/taxonomy"
)

type stubIndexer struct {
	docs []models.AggregationDoc
	err  error
}

func (s *stubIndexer) IndexAggregation(_ context.Context, doc models.AggregationDoc) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, doc)
	return nil
}

func TestProcessMessageIndexesTree(t *testing.T) {
	log := logger.Discard()
	idx := &stubIndexer{}
	table := taxonomy.Default()

	batch := classificationBatch{
		ObjectID: "ZTF21aaabbbb",
		Records: []models.ClassificationRecord{
			{Source: "Lasair", Level: "obj", Label: "SN", Confidence: 0.5},
			{Source: "Fink", Level: "lc", Label: "QSO", Confidence: 0.3},
		},
	}
	data, err := json.Marshal(batch)
	require.NoError(t, err)

	require.NoError(t, processMessage(context.Background(), log, idx, table, kafka.Message{Value: data}))
	require.Len(t, idx.docs, 1)

	doc := idx.docs[0]
	require.Equal(t, "ZTF21aaabbbb", doc.ObjectID)
	require.NotEmpty(t, doc.RunID)
	require.False(t, doc.IndexedAt.IsZero())

	labels := make(map[string]models.AggregationNode, len(doc.Nodes))
	for _, node := range doc.Nodes {
		labels[node.Label] = node
	}
	require.Contains(t, labels, "SNII")
	require.Contains(t, labels, "Quasar")
	require.Contains(t, labels, taxonomy.RootCode)
	require.InDelta(t, 0.8, labels[taxonomy.RootCode].Weight, 1e-9)
}

func TestProcessMessageRejectsMalformedBatches(t *testing.T) {
	log := logger.Discard()
	idx := &stubIndexer{}
	table := taxonomy.Default()

	tests := []struct {
		name  string
		value []byte
	}{
		{name: "not json", value: []byte(`{{`)},
		{name: "missing object id", value: []byte(`{"records": [{"source": "Fink", "level": "lc", "classification": "QSO", "probability": 0.3}]}`)},
		{name: "no records", value: []byte(`{"object_id": "ZTF21aaabbbb", "records": []}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := processMessage(context.Background(), log, idx, table, kafka.Message{Value: tt.value})
			require.Error(t, err)
		})
	}
	require.Empty(t, idx.docs)
}

func TestProcessMessagePropagatesIndexerFailure(t *testing.T) {
	log := logger.Discard()
	idx := &stubIndexer{err: context.DeadlineExceeded}
	table := taxonomy.Default()

	value := []byte(`{"object_id": "ZTF21aaabbbb", "records": [{"source": "Fink", "level": "lc", "classification": "QSO", "probability": 0.3}]}`)
	err := processMessage(context.Background(), log, idx, table, kafka.Message{Value: value})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoadTableDefaultsWhenPathEmpty(t *testing.T) {
	table, err := loadTable("")
	require.NoError(t, err)
	require.NotNil(t, table)
}
