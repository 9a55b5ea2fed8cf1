package taxonomy

import (
	"math"
	"sort"

	"github.com/nightwatch-obs/alert-radar/internal/models"
)

// ConfidenceFloor is the minimum confidence a record needs to
// contribute to an aggregation. Below-floor verdicts are classifier
// noise and are excluded entirely rather than down-weighted.
const ConfidenceFloor = 0.01

// Tree is the merged, confidence-weighted hierarchy built from one
// batch of classification records. It is rebuilt fresh per call; no
// state survives between aggregations.
type Tree struct {
	nodes map[string]*models.AggregationNode
}

// Nodes returns the {label, parent, weight} set sorted by label, so
// two aggregations of the same input compare equal.
func (t *Tree) Nodes() []models.AggregationNode {
	out := make([]models.AggregationNode, 0, len(t.nodes))
	for _, node := range t.nodes {
		out = append(out, *node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Node looks up a single node by label.
func (t *Tree) Node(label string) (models.AggregationNode, bool) {
	node, ok := t.nodes[label]
	if !ok {
		return models.AggregationNode{}, false
	}
	return *node, true
}

// Len reports how many nodes the tree holds, the root included.
func (t *Tree) Len() int { return len(t.nodes) }

type terminalKey struct {
	Source string
	Level  string
	Code   string
}

// Aggregate merges a batch of classification records into one tree.
// Records below the confidence floor are dropped. When several records
// from the same broker and classifier stage resolve to the same
// terminal code, only the last one in the batch counts; the stage has
// superseded its earlier verdicts. Every surviving record then pushes
// its confidence onto each node of its ancestry chain, so contributions
// from different brokers and stages sum where their chains intersect.
// A walk that exceeds the hop limit aborts the whole aggregation with
// a ConfigError.
func (t *Table) Aggregate(records []models.ClassificationRecord) (*Tree, error) {
	terminals := make(map[terminalKey]models.ClassificationRecord)
	for _, rec := range records {
		// NaN compares false against the floor; it is noise too.
		if rec.Confidence < ConfidenceFloor || math.IsNaN(rec.Confidence) {
			continue
		}
		code := t.Resolve(rec)
		terminals[terminalKey{Source: rec.Source, Level: rec.Level, Code: code}] = rec
	}

	tree := &Tree{nodes: make(map[string]*models.AggregationNode)}
	for key, rec := range terminals {
		chain, err := t.Chain(key.Code)
		if err != nil {
			return nil, err
		}
		for i, label := range chain {
			node, ok := tree.nodes[label]
			if !ok {
				parent := ""
				if i+1 < len(chain) {
					parent = chain[i+1]
				}
				node = &models.AggregationNode{Label: label, Parent: parent}
				tree.nodes[label] = node
			}
			node.Weight += rec.Confidence
		}
	}
	return tree, nil
}
