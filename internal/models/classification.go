package models

import "time"

// ClassificationRecord is a single classifier verdict for one object.
// Source is the broker that produced it, Level the classifier stage
// (e.g. "stamp_classifier" vs "lc_classifier"), Label the raw
// classifier-specific class string. Confidence is classifier-defined
// and lives in [0, 1]; it is not a calibrated probability.
type ClassificationRecord struct {
	Source     string  `json:"source"`
	Level      string  `json:"level"`
	Label      string  `json:"classification"`
	Confidence float64 `json:"probability"`
}

// AggregationNode is one node of a confidence-weighted taxonomy tree.
// Parent is empty only for the root.
type AggregationNode struct {
	Label  string  `json:"label"`
	Parent string  `json:"parent"`
	Weight float64 `json:"weight"`
}

// AggregationDoc wraps one object's aggregation tree for persistence.
type AggregationDoc struct {
	ObjectID  string            `json:"object_id"`
	RunID     string            `json:"run_id"`
	IndexedAt time.Time         `json:"indexed_at"`
	Nodes     []AggregationNode `json:"nodes"`
}
