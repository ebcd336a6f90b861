// Package pipeline coordinates the four stages of a batch run: it generates and
// validates batch identifiers, wraps each stage execution with metadata recording,
// per-stage log files, and metrics, and runs the orchestrated sequence.
package pipeline

import (
	"fmt"
	"time"
)

// BatchIDLayout is the timestamp layout batch identifiers are derived from.
const BatchIDLayout = "20060102_150405"

// NewBatchID derives a batch identifier from the given time.
// All artifacts of one run (raw files, processed partition, warehouse rows,
// metadata entries) share this identifier.
func NewBatchID(t time.Time) string {
	return t.Format(BatchIDLayout)
}

// ParseBatchID parses a batch identifier back into its timestamp.
// It rejects anything that does not round-trip through the layout, which keeps
// malformed ids out of file paths and SQL predicates.
func ParseBatchID(id string) (time.Time, error) {
	t, err := time.Parse(BatchIDLayout, id)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid batch id '%s': %w", id, err)
	}
	if t.Format(BatchIDLayout) != id {
		return time.Time{}, fmt.Errorf("invalid batch id '%s': does not match layout %s", id, BatchIDLayout)
	}
	return t, nil
}
