// Package memory provides an in-process storage.Backend. It implements the
// same conditional-put and filter semantics as the DynamoDB driver and is
// the substrate for tests and local development.
package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
	"github.com/lukeryannetnz/quartz-dynamo/storage"
)

// Backend stores records in plain maps under a mutex.
type Backend struct {
	mu     sync.RWMutex
	tables map[string]*table
}

type table struct {
	keyAttrs []string
	items    map[string]storage.Record
}

// New creates an empty backend with no tables.
func New() *Backend {
	return &Backend{tables: make(map[string]*table)}
}

// CreateTable registers a table and its primary-key attributes. Creating an
// existing table is a no-op, matching the bootstrap behaviour of the
// DynamoDB driver.
func (b *Backend) CreateTable(name string, keyAttrs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tables[name]; ok {
		return
	}
	b.tables[name] = &table{keyAttrs: keyAttrs, items: make(map[string]storage.Record)}
}

func (b *Backend) table(name string) (*table, error) {
	t, ok := b.tables[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrPersistence, "table %q does not exist", name)
	}
	return t, nil
}

func (t *table) keyFor(rec storage.Record) (string, error) {
	parts := make([]string, 0, len(t.keyAttrs))
	for _, attr := range t.keyAttrs {
		v := rec.Get(attr)
		if v.IsAbsent() {
			return "", errors.Newf("record is missing key attribute %q", attr)
		}
		parts = append(parts, fmt.Sprintf("%s=%v|%v|%v", attr, v.S, v.N, v.B))
	}
	return strings.Join(parts, "/"), nil
}

// Put upserts one record.
func (b *Backend) Put(ctx context.Context, tableName string, rec storage.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.table(tableName)
	if err != nil {
		return err
	}
	key, err := t.keyFor(rec)
	if err != nil {
		return err
	}
	t.items[key] = rec.Clone()
	return nil
}

// PutIf upserts one record only if the condition holds against the current
// record. A missing record evaluates the condition against an empty record,
// so attribute_not_exists guards hold and equality guards fail, matching
// DynamoDB ConditionExpression semantics.
func (b *Backend) PutIf(ctx context.Context, tableName string, rec storage.Record, cond storage.Condition) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.table(tableName)
	if err != nil {
		return err
	}
	key, err := t.keyFor(rec)
	if err != nil {
		return err
	}

	current := t.items[key]
	ok, err := storage.Eval(cond.Expression, cond.Names, cond.Values, current)
	if err != nil {
		return err
	}
	if !ok {
		return errors.WithStack(errors.ErrConditionFailed)
	}
	t.items[key] = rec.Clone()
	return nil
}

// Get is a point lookup by primary key.
func (b *Backend) Get(ctx context.Context, tableName string, key storage.Record) (storage.Record, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, err := b.table(tableName)
	if err != nil {
		return storage.Record{}, false, err
	}
	k, err := t.keyFor(key)
	if err != nil {
		return storage.Record{}, false, err
	}
	rec, ok := t.items[k]
	if !ok {
		return storage.Record{}, false, nil
	}
	return rec.Clone(), true, nil
}

// Delete removes a record; deleting a missing key is not an error.
func (b *Backend) Delete(ctx context.Context, tableName string, key storage.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.table(tableName)
	if err != nil {
		return err
	}
	k, err := t.keyFor(key)
	if err != nil {
		return err
	}
	delete(t.items, k)
	return nil
}

// Scan yields every record matching the filter. The snapshot is taken up
// front under the read lock; iteration is in stable key order.
func (b *Backend) Scan(ctx context.Context, tableName string, filter storage.Filter) iter.Seq2[storage.Record, error] {
	return func(yield func(storage.Record, error) bool) {
		b.mu.RLock()
		t, err := b.table(tableName)
		if err != nil {
			b.mu.RUnlock()
			yield(storage.Record{}, err)
			return
		}
		keys := make([]string, 0, len(t.items))
		for k := range t.items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		snapshot := make([]storage.Record, 0, len(keys))
		for _, k := range keys {
			snapshot = append(snapshot, t.items[k].Clone())
		}
		b.mu.RUnlock()

		for _, rec := range snapshot {
			if ctx.Err() != nil {
				yield(storage.Record{}, ctx.Err())
				return
			}
			ok, err := storage.Eval(filter.Expression, filter.Names, filter.Values, rec)
			if err != nil {
				yield(storage.Record{}, err)
				return
			}
			if !ok {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// BatchWrite upserts up to MaxBatchWriteItems records. The in-memory driver
// never leaves items unprocessed.
func (b *Backend) BatchWrite(ctx context.Context, tableName string, recs []storage.Record) ([]storage.Record, error) {
	if len(recs) > storage.MaxBatchWriteItems {
		return nil, errors.Newf("batch of %d exceeds the %d item limit", len(recs), storage.MaxBatchWriteItems)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.table(tableName)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		key, err := t.keyFor(rec)
		if err != nil {
			return nil, err
		}
		t.items[key] = rec.Clone()
	}
	return nil, nil
}
