package repository

import (
	"time"

	"github.com/okian/pdmimport/pkg/logger"
)

// MemOption applies a configuration option to the MemStore.
type MemOption func(*MemStore)

// WithMemNames overrides the physical collection names of a MemStore.
func WithMemNames(names Names) MemOption {
	return func(s *MemStore) {
		if len(names) > 0 {
			s.names = names
		}
	}
}

// MongoOption applies a configuration option to the MongoStore.
type MongoOption func(*MongoStore)

// WithCollectionNames overrides the physical collection names.
func WithCollectionNames(names Names) MongoOption {
	return func(s *MongoStore) {
		if len(names) > 0 {
			s.names = names
		}
	}
}

// WithConnectTimeout bounds connecting and the initial ping.
func WithConnectTimeout(d time.Duration) MongoOption {
	return func(s *MongoStore) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithMongoLogger sets the logger used by the store.
func WithMongoLogger(l logger.Logger) MongoOption {
	return func(s *MongoStore) {
		if l != nil {
			s.logger = l
		}
	}
}
