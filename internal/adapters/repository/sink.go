package repository

import (
	"context"
	"fmt"

	"github.com/okian/pdmimport/internal/domain/model"
	"github.com/okian/pdmimport/pkg/logger"
	"go.uber.org/multierr"
)

// Sink flushes a run's assembled collections into a Store.
type Sink struct {
	store  Store
	commit bool
	logger logger.Logger
}

// SinkOption applies a configuration option to the Sink.
type SinkOption func(*Sink)

// WithCommit enables writes. Without it the sink only reports what it would do.
func WithCommit(commit bool) SinkOption {
	return func(s *Sink) {
		s.commit = commit
	}
}

// WithSinkLogger sets the logger used by the sink.
func WithSinkLogger(l logger.Logger) SinkOption {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSink returns a Sink writing to store. It is a dry run unless WithCommit(true).
func NewSink(store Store, opts ...SinkOption) *Sink {
	s := &Sink{store: store, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FlushResult reports the outcome of a flush per collection.
type FlushResult struct {
	DryRun   bool
	Inserted map[model.Collection]int
	Failed   map[model.Collection]error
}

// OK reports whether every attempted insert succeeded.
func (r FlushResult) OK() bool {
	return len(r.Failed) == 0
}

// Flush bulk-inserts each non-empty collection. Every collection is attempted
// regardless of earlier failures; failures are returned combined.
func (s *Sink) Flush(ctx context.Context, cols model.Collections) (FlushResult, error) {
	res := FlushResult{
		DryRun:   !s.commit,
		Inserted: make(map[model.Collection]int, len(model.AllCollections)),
		Failed:   make(map[model.Collection]error),
	}

	var errs error
	for _, coll := range model.AllCollections {
		docs := cols.Documents(coll)
		if len(docs) == 0 {
			continue
		}
		if !s.commit {
			s.logger.Info(ctx, "dry run: skipping insert",
				logger.String("collection", string(coll)),
				logger.Int("documents", len(docs)),
			)
			continue
		}
		if err := s.store.InsertMany(ctx, coll, docs); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrInsert, coll, err)
			s.logger.Error(ctx, "insert failed",
				logger.String("collection", string(coll)),
				logger.Int("documents", len(docs)),
				logger.Error(err),
			)
			res.Failed[coll] = err
			errs = multierr.Append(errs, err)
			continue
		}
		res.Inserted[coll] = len(docs)
		s.logger.Info(ctx, "inserted documents",
			logger.String("collection", string(coll)),
			logger.Int("documents", len(docs)),
		)
	}
	return res, errs
}

// Purge deletes every pump-originated document (source: true) from the
// three collections. Each collection is attempted independently.
func (s *Sink) Purge(ctx context.Context) (int64, error) {
	filter := model.Document{model.FieldSource: true}
	var (
		total int64
		errs  error
	)
	for _, coll := range model.AllCollections {
		if !s.commit {
			s.logger.Info(ctx, "dry run: skipping purge", logger.String("collection", string(coll)))
			continue
		}
		n, err := s.store.DeleteMany(ctx, coll, filter)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: %w", ErrPurge, coll, err))
			continue
		}
		total += n
		s.logger.Info(ctx, "purged pump documents",
			logger.String("collection", string(coll)),
			logger.Int64("deleted", n),
		)
	}
	return total, errs
}
