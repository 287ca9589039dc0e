// Package jobstore implements the durable, shared job-scheduler store: the
// per-entity record mappers, the generic repository over the storage
// backend, and the JobStore orchestrator.
package jobstore

import (
	"context"
	"iter"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
	"github.com/lukeryannetnz/quartz-dynamo/storage"
)

// Entity is anything the repository can persist: it marshals itself to a
// storage record, restores itself from one, and knows its primary key.
type Entity interface {
	MarshalRecord() (storage.Record, error)
	UnmarshalRecord(rec storage.Record) error
	KeyRecord() storage.Record
}

// readRetries bounds backoff retries of idempotent reads before a
// persistence failure surfaces.
const readRetries = 3

// Repository is a typed wrapper over one backend table.
type Repository[T Entity] struct {
	backend   storage.Backend
	table     string
	newEntity func() T
}

// NewRepository creates a repository for one entity type. newEntity must
// return a fresh zero entity for decoding.
func NewRepository[T Entity](backend storage.Backend, table string, newEntity func() T) *Repository[T] {
	return &Repository[T]{backend: backend, table: table, newEntity: newEntity}
}

// Store upserts one entity.
func (r *Repository[T]) Store(ctx context.Context, e T) error {
	rec, err := e.MarshalRecord()
	if err != nil {
		return err
	}
	return r.backend.Put(ctx, r.table, rec)
}

// StoreIf upserts one entity guarded by a condition; errors.ErrConditionFailed
// reports a lost optimistic-concurrency race.
func (r *Repository[T]) StoreIf(ctx context.Context, e T, cond storage.Condition) error {
	rec, err := e.MarshalRecord()
	if err != nil {
		return err
	}
	return r.backend.PutIf(ctx, r.table, rec, cond)
}

// StoreBatch upserts entities in physical batches of at most 25. Chunks are
// not atomic with respect to each other; a failure may leave earlier chunks
// written. Unprocessed items are retried once and then returned for the
// caller to retry exactly those.
func (r *Repository[T]) StoreBatch(ctx context.Context, items []T) ([]T, error) {
	var unprocessed []T

	for start := 0; start < len(items); start += storage.MaxBatchWriteItems {
		end := start + storage.MaxBatchWriteItems
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		recs := make([]storage.Record, 0, len(chunk))
		for _, e := range chunk {
			rec, err := e.MarshalRecord()
			if err != nil {
				return unprocessed, err
			}
			recs = append(recs, rec)
		}

		left, err := r.backend.BatchWrite(ctx, r.table, recs)
		if err != nil {
			return unprocessed, err
		}
		if len(left) > 0 {
			left, err = r.backend.BatchWrite(ctx, r.table, left)
			if err != nil {
				return unprocessed, err
			}
		}
		for _, rec := range left {
			e := r.newEntity()
			if err := e.UnmarshalRecord(rec); err != nil {
				return unprocessed, err
			}
			unprocessed = append(unprocessed, e)
		}
	}

	return unprocessed, nil
}

// Get is a point lookup by primary key. A missing record is (zero, false,
// nil). Transient persistence failures are retried with backoff.
func (r *Repository[T]) Get(ctx context.Context, key storage.Record) (T, bool, error) {
	var (
		rec   storage.Record
		found bool
	)
	err := retryRead(ctx, func() error {
		var err error
		rec, found, err = r.backend.Get(ctx, r.table, key)
		return err
	})
	if err != nil || !found {
		var zero T
		return zero, false, err
	}

	e := r.newEntity()
	if err := e.UnmarshalRecord(rec); err != nil {
		var zero T
		return zero, false, err
	}
	return e, true, nil
}

// Delete removes an entity by primary key; missing keys are not an error.
func (r *Repository[T]) Delete(ctx context.Context, key storage.Record) error {
	return r.backend.Delete(ctx, r.table, key)
}

// Scan yields every entity matching the filter. The underlying table scan
// is buffered per attempt so a transient failure can be retried whole;
// decoding stays lazy. Results are eventually consistent with recent writes.
func (r *Repository[T]) Scan(ctx context.Context, filter storage.Filter) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var recs []storage.Record
		err := retryRead(ctx, func() error {
			recs = recs[:0]
			for rec, err := range r.backend.Scan(ctx, r.table, filter) {
				if err != nil {
					return err
				}
				recs = append(recs, rec)
			}
			return nil
		})
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}

		for _, rec := range recs {
			e := r.newEntity()
			if err := e.UnmarshalRecord(rec); err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Count returns the number of records matching the filter. Full scan;
// eventually consistent.
func (r *Repository[T]) Count(ctx context.Context, filter storage.Filter) (int, error) {
	n := 0
	for _, err := range r.Scan(ctx, filter) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// retryRead retries an idempotent read on persistence failures with bounded
// exponential backoff. Non-persistence errors surface immediately.
func retryRead(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(newReadBackOff(), readRetries), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !errors.IsPersistence(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func newReadBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	return b
}
