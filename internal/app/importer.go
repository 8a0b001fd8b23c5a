// Package app runs one incremental import of a pump event dump.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pdmimport/internal/adapters/audit"
	"github.com/okian/pdmimport/internal/adapters/decoder"
	"github.com/okian/pdmimport/internal/adapters/repository"
	"github.com/okian/pdmimport/internal/domain/bucket"
	"github.com/okian/pdmimport/internal/domain/model"
	"github.com/okian/pdmimport/internal/domain/normalize"
	"github.com/okian/pdmimport/internal/domain/watermark"
	"github.com/okian/pdmimport/pkg/logger"
	"github.com/okian/pdmimport/pkg/metrics"
)

const (
	defaultDumpPath   = "dump.jsonl"
	defaultResultPath = "result.json"
	reasonUnknown     = "unknown"
)

// Report summarizes a finished run.
type Report struct {
	RunID     string
	Watermark model.Watermark
	Purged    int64

	Decoded      int
	Ignored      int
	Stale        int
	BadTimestamp int
	Unknown      int
	Accepted     int
	Buckets      map[string]int

	Flush      repository.FlushResult
	PersistErr error
	Duration   time.Duration
}

// Importer wires the pipeline stages for a single run.
type Importer struct {
	store   repository.Store
	decoder decoder.Decoder

	dumpPath   string
	resultPath string
	commit     bool
	purge      bool
	bootstrap  bool

	runID  func() string
	logger logger.Logger
}

// New constructs an Importer reading through dec and persisting into store.
func New(store repository.Store, dec decoder.Decoder, opts ...Option) *Importer {
	i := &Importer{
		store:      store,
		decoder:    dec,
		dumpPath:   defaultDumpPath,
		resultPath: defaultResultPath,
		runID:      newRunID,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run executes purge (optional), watermark resolution, the streaming pass and
// the final flush. A returned error means the run aborted. Store insert
// failures are not returned; they are carried in Report.PersistErr.
func (i *Importer) Run(ctx context.Context) (rep Report, err error) {
	start := time.Now()
	rep = Report{RunID: i.runID()}
	log := i.logger.With(logger.String("run_id", rep.RunID))

	defer func() {
		rep.Duration = time.Since(start)
		metrics.RecordRun(rep.Duration, err == nil && rep.PersistErr == nil)
	}()

	sink := repository.NewSink(i.store,
		repository.WithCommit(i.commit),
		repository.WithSinkLogger(log.Named("sink")),
	)

	bootstrap := i.bootstrap
	if i.purge {
		bootstrap = true
		n, err := sink.Purge(ctx)
		if err != nil {
			return rep, fmt.Errorf("%w: %w", ErrPurge, err)
		}
		rep.Purged = n
	}

	wm, err := watermark.NewResolver(i.store, watermark.WithBootstrap(bootstrap)).Resolve(ctx)
	if err != nil {
		return rep, fmt.Errorf("%w: %w", ErrWatermark, err)
	}
	rep.Watermark = wm
	metrics.UpdateWatermark(int64(wm))
	log.Info(ctx, "resolved watermark",
		logger.Int64("watermark", int64(wm)),
		logger.Bool("bootstrap", wm == watermark.Beginning),
	)

	out, err := audit.Open(i.resultPath)
	if err != nil {
		return rep, fmt.Errorf("%w: %w", ErrAudit, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrAudit, cerr)
		}
	}()

	p := &pass{
		normalizer: normalize.New(wm),
		assembler:  bucket.New(),
		audit:      out,
		report:     &rep,
		logger:     log,
	}
	if err := i.decoder.Decode(ctx, i.dumpPath, p.handle); err != nil {
		if errors.Is(err, audit.ErrWrite) || errors.Is(err, audit.ErrClosed) {
			return rep, fmt.Errorf("%w: %w", ErrAudit, err)
		}
		return rep, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	rep.Buckets = p.assembler.Counts()

	log.Info(ctx, "stream complete",
		logger.Int("decoded", rep.Decoded),
		logger.Int("accepted", rep.Accepted),
		logger.Int("ignored", rep.Ignored),
		logger.Int("stale", rep.Stale),
		logger.Int("bad_timestamp", rep.BadTimestamp),
		logger.Int("unknown", rep.Unknown),
	)

	rep.Flush, rep.PersistErr = sink.Flush(ctx, p.assembler.Assemble())
	if rep.PersistErr != nil {
		log.Error(ctx, "persisting collections failed", logger.Error(rep.PersistErr))
	}
	return rep, nil
}

// pass holds the state of one streaming pass over the dump.
type pass struct {
	normalizer *normalize.Normalizer
	assembler  *bucket.Assembler
	audit      *audit.Sink
	report     *Report
	logger     logger.Logger
}

func (p *pass) handle(ctx context.Context, raw model.RawRecord) error {
	p.report.Decoded++
	metrics.RecordDecoded(string(raw.Category))

	rec, verdict := p.normalizer.Normalize(raw)
	switch verdict {
	case normalize.VerdictAccepted:
	case normalize.VerdictIgnored:
		p.report.Ignored++
		metrics.RecordRejected(verdict.String())
		return nil
	case normalize.VerdictStale:
		p.report.Stale++
		metrics.RecordRejected(verdict.String())
		return nil
	case normalize.VerdictBadTimestamp:
		p.report.BadTimestamp++
		metrics.RecordRejected(verdict.String())
		p.logger.Warn(ctx, "skipping record with unreadable timestamp",
			logger.String("category", string(raw.Category)),
			logger.Any("timestamp", raw.Fields[model.FieldTimestamp]),
		)
		return nil
	}

	if err := p.assembler.Append(rec); err != nil {
		if !errors.Is(err, bucket.ErrUnknownBucket) {
			return err
		}
		p.report.Unknown++
		metrics.RecordRejected(reasonUnknown)
		p.logger.Warn(ctx, "skipping record without a collection",
			logger.String("category", string(raw.Category)),
			logger.Int64("timestamp", rec.Timestamp),
		)
		return nil
	}

	if err := p.audit.Record(ctx, rec); err != nil {
		return err
	}
	p.report.Accepted++
	metrics.RecordAccepted(rec.Category)
	return nil
}
