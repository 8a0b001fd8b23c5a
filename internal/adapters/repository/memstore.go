package repository

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/okian/pdmimport/internal/domain/model"
	"github.com/okian/pdmimport/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore is an in-memory Store. Documents pass through a BSON round trip
// on the way in, so they read back with the same types MongoDB would return.
type MemStore struct {
	mu     sync.RWMutex
	docs   map[model.Collection][]bson.M
	names  Names
	closed bool
}

// NewMemStore returns an empty MemStore.
func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		docs:  make(map[model.Collection][]bson.M),
		names: DefaultNames(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InsertMany implements Store.
func (s *MemStore) InsertMany(ctx context.Context, coll model.Collection, docs []any) (err error) {
	start := time.Now()
	name, err := s.names.lookup(coll)
	if err != nil {
		return err
	}
	defer func() { observe("insert_many", name, start, int64(len(docs)), err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	converted := make([]bson.M, 0, len(docs))
	for i, d := range docs {
		m, err := toBSON(d)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		if _, ok := m["_id"]; !ok {
			m["_id"] = primitive.NewObjectID()
		}
		converted = append(converted, m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.docs[coll] = append(s.docs[coll], converted...)
	return nil
}

// DeleteMany implements Store.
func (s *MemStore) DeleteMany(ctx context.Context, coll model.Collection, filter model.Document) (n int64, err error) {
	start := time.Now()
	name, err := s.names.lookup(coll)
	if err != nil {
		return 0, err
	}
	defer func() { observe("delete_many", name, start, n, err) }()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := filterBSON(filter)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	kept := s.docs[coll][:0]
	for _, d := range s.docs[coll] {
		if matches(d, f) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	s.docs[coll] = kept
	return n, nil
}

// FindLatest implements Store.
func (s *MemStore) FindLatest(ctx context.Context, coll model.Collection, filter model.Document, sortField string) (doc model.Document, found bool, err error) {
	start := time.Now()
	name, err := s.names.lookup(coll)
	if err != nil {
		return nil, false, err
	}
	defer func() { observe("find_latest", name, start, 0, err) }()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	f, err := filterBSON(filter)
	if err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}

	var best bson.M
	bestKey, bestOK := 0.0, false
	for _, d := range s.docs[coll] {
		if !matches(d, f) {
			continue
		}
		key, ok := sortKey(d[sortField])
		switch {
		case best == nil:
			best, bestKey, bestOK = d, key, ok
		case ok && (!bestOK || key > bestKey):
			best, bestKey, bestOK = d, key, ok
		}
	}
	if best == nil {
		return nil, false, nil
	}
	return fromBSON(best), true, nil
}

// Len returns the number of documents held in coll.
func (s *MemStore) Len(coll model.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[coll])
}

// All returns copies of the documents in coll, in insertion order, without _id.
func (s *MemStore) All(coll model.Collection) []model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Document, len(s.docs[coll]))
	for i, d := range s.docs[coll] {
		out[i] = fromBSON(d)
	}
	return out
}

// Close implements Store.
func (s *MemStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func matches(doc, filter bson.M) bool {
	for k, want := range filter {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	return true
}

func sortKey(v any) (float64, bool) {
	switch t := v.(type) {
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case primitive.DateTime:
		return float64(t), true
	default:
		return 0, false
	}
}

// toBSON converts v into a document the way the driver would encode it.
func toBSON(v any) (bson.M, error) {
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func filterBSON(filter model.Document) (bson.M, error) {
	if len(filter) == 0 {
		return bson.M{}, nil
	}
	return toBSON(filter)
}

// fromBSON copies a driver document into a model.Document, dropping _id and
// turning BSON dates into time.Time.
func fromBSON(m bson.M) model.Document {
	out := make(model.Document, len(m))
	for k, v := range m {
		if k == "_id" {
			continue
		}
		if dt, ok := v.(primitive.DateTime); ok {
			out[k] = dt.Time()
			continue
		}
		out[k] = v
	}
	return out
}

func observe(op, coll string, start time.Time, n int64, err error) {
	metrics.RecordStoreOperation(op, coll, time.Since(start), n, err)
}
