package app

import (
	"github.com/google/uuid"
	"github.com/okian/pdmimport/pkg/logger"
)

// Option applies a configuration option to the Importer.
type Option func(*Importer)

// WithDumpPath sets the dump file read by the decoder.
func WithDumpPath(path string) Option {
	return func(i *Importer) {
		if path != "" {
			i.dumpPath = path
		}
	}
}

// WithResultPath sets the audit log written during the run.
func WithResultPath(path string) Option {
	return func(i *Importer) {
		if path != "" {
			i.resultPath = path
		}
	}
}

// WithCommit enables the store writes. Without it the run is a dry run.
func WithCommit(commit bool) Option {
	return func(i *Importer) {
		i.commit = commit
	}
}

// WithPurge deletes prior pump documents before importing. Purging implies
// bootstrap and only takes effect together with WithCommit(true).
func WithPurge(purge bool) Option {
	return func(i *Importer) {
		i.purge = purge
	}
}

// WithBootstrap imports the whole dump when the store holds no prior download.
func WithBootstrap(bootstrap bool) Option {
	return func(i *Importer) {
		i.bootstrap = bootstrap
	}
}

// WithLogger sets a custom logger for the importer.
func WithLogger(l logger.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithRunID overrides how run identifiers are generated.
func WithRunID(fn func() string) Option {
	return func(i *Importer) {
		if fn != nil {
			i.runID = fn
		}
	}
}

func newRunID() string {
	return uuid.NewString()
}
