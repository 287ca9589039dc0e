package storage

import (
	"context"
	"iter"
)

// MaxBatchWriteItems is the largest number of records one physical
// BatchWrite call may carry. Larger inputs must be chunked by the caller.
const MaxBatchWriteItems = 25

// Filter restricts a Scan. Expression uses the backend's filter grammar
// (see Eval for the subset every driver must support); Names maps #
// placeholders to attribute names, Values maps : placeholders to values.
// The zero Filter matches everything.
type Filter struct {
	Expression string
	Names      map[string]string
	Values     map[string]Value
}

// Condition guards a conditional put. Same grammar as Filter. A put whose
// condition does not hold against the current stored record (or against an
// absent record) fails with errors.ErrConditionFailed.
type Condition struct {
	Expression string
	Names      map[string]string
	Values     map[string]Value
}

// Backend is the storage boundary: a table-oriented key-value store with no
// cross-item transactions. Scans are eventually consistent with writes.
type Backend interface {
	// Put upserts one record.
	Put(ctx context.Context, table string, rec Record) error

	// PutIf upserts one record only if cond holds against the currently
	// stored record. Returns errors.ErrConditionFailed on a lost race.
	PutIf(ctx context.Context, table string, rec Record, cond Condition) error

	// Get is a point lookup. A missing record is (zero, false, nil).
	Get(ctx context.Context, table string, key Record) (Record, bool, error)

	// Delete removes a record. Deleting a missing key is not an error.
	Delete(ctx context.Context, table string, key Record) error

	// Scan lazily yields every record matching the filter.
	Scan(ctx context.Context, table string, filter Filter) iter.Seq2[Record, error]

	// BatchWrite upserts up to MaxBatchWriteItems records in one call and
	// returns any unprocessed records for the caller to retry.
	BatchWrite(ctx context.Context, table string, recs []Record) ([]Record, error)
}
