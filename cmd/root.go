package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/pdmimport/internal/adapters/decoder"
	"github.com/okian/pdmimport/internal/adapters/repository"
	"github.com/okian/pdmimport/internal/app"
	"github.com/okian/pdmimport/internal/config"
	"github.com/okian/pdmimport/internal/domain/model"
	"github.com/okian/pdmimport/pkg/logger"
	"github.com/okian/pdmimport/pkg/metrics"
	"github.com/spf13/cobra"
)

const (
	closeTimeout = 10 * time.Second
	pushTimeout  = 10 * time.Second
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pdmimport",
		Short:         "Import new pump history records into the document store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd)
		},
	}
	config.BindFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command) error {
	stderr := cmd.ErrOrStderr()

	cfg, err := config.Load(ctx, cmd.Flags())
	if err != nil {
		// Logger is not configured yet.
		fmt.Fprintln(stderr, "failed to load config: "+err.Error())
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(stderr)); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging: "+err.Error())
		return err
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintln(stderr, "failed to sync logger: "+err.Error())
		}
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.String("driver", cfg.StoreDriver), logger.Error(err))
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := store.Close(cctx); err != nil {
			log.Warn(ctx, "failed to close store", logger.Error(err))
		}
	}()

	imp := app.New(store, decoder.NewJSONLines(),
		app.WithDumpPath(cfg.DumpPath),
		app.WithResultPath(cfg.ResultPath),
		app.WithCommit(cfg.Commit),
		app.WithPurge(cfg.Purge),
		app.WithBootstrap(cfg.Bootstrap),
		app.WithLogger(log.Named("importer")),
	)

	rep, runErr := imp.Run(ctx)
	pushMetrics(ctx, cfg, rep.RunID, log)
	if runErr != nil {
		log.Error(ctx, "import aborted", logger.String("run_id", rep.RunID), logger.Error(runErr))
		return runErr
	}

	log.Info(ctx, "import finished",
		logger.String("run_id", rep.RunID),
		logger.Bool("dry_run", rep.Flush.DryRun),
		logger.Int("accepted", rep.Accepted),
		logger.Bool("persisted", rep.PersistErr == nil),
		logger.Duration("duration", rep.Duration),
	)
	printSummary(cmd.OutOrStdout(), rep)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	names := repository.Names{
		model.CollectionGlucose:    cfg.GlucoseCollection,
		model.CollectionTreatments: cfg.TreatmentsCollection,
		model.CollectionStatus:     cfg.StatusCollection,
	}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn(ctx, "using in-memory store; nothing will outlive the process")
		return repository.NewMemStore(repository.WithMemNames(names)), nil
	default:
		uri, err := cfg.StoreURI()
		if err != nil {
			return nil, err
		}
		return repository.NewMongoStore(ctx, uri, cfg.Database,
			repository.WithCollectionNames(names),
			repository.WithConnectTimeout(cfg.StoreTimeout()),
			repository.WithMongoLogger(log.Named("mongo")),
		)
	}
}

func pushMetrics(ctx context.Context, cfg *config.Config, runID string, log logger.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	grouping := map[string]string{}
	if runID != "" {
		grouping["run_id"] = runID
	}
	if err := metrics.Push(pctx, cfg.PushgatewayURL, cfg.MetricsJob, grouping); err != nil {
		log.Warn(ctx, "failed to push metrics", logger.String("url", cfg.PushgatewayURL), logger.Error(err))
	}
}

func printSummary(w io.Writer, rep app.Report) {
	mode := "committed"
	if rep.Flush.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "run %s (%s): decoded=%d accepted=%d ignored=%d stale=%d bad_timestamp=%d unknown=%d\n",
		rep.RunID, mode, rep.Decoded, rep.Accepted, rep.Ignored, rep.Stale, rep.BadTimestamp, rep.Unknown)
	for _, coll := range model.AllCollections {
		if err, failed := rep.Flush.Failed[coll]; failed {
			fmt.Fprintf(w, "  %-10s failed: %v\n", coll, err)
			continue
		}
		fmt.Fprintf(w, "  %-10s inserted=%d\n", coll, rep.Flush.Inserted[coll])
	}
}

