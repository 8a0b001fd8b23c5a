// Package repository defines the document store port, its MongoDB and
// in-memory implementations, and the persistence sink that flushes a run.
package repository

import (
	"context"

	"github.com/okian/pdmimport/internal/domain/model"
)

// Store provides the document operations the importer needs.
type Store interface {
	// InsertMany bulk-inserts docs into coll.
	InsertMany(ctx context.Context, coll model.Collection, docs []any) error

	// DeleteMany removes every document of coll matching filter and
	// returns the number removed.
	DeleteMany(ctx context.Context, coll model.Collection, filter model.Document) (int64, error)

	// FindLatest returns the document of coll matching filter with the
	// greatest sortField, without its _id. found is false when none match.
	FindLatest(ctx context.Context, coll model.Collection, filter model.Document, sortField string) (doc model.Document, found bool, err error)

	// Close releases the store's resources.
	Close(ctx context.Context) error
}

// Names maps logical collections to physical collection names.
type Names map[model.Collection]string

// DefaultNames are the collection names of the cgm database.
func DefaultNames() Names {
	return Names{
		model.CollectionGlucose:    "bg",
		model.CollectionTreatments: "treatments",
		model.CollectionStatus:     "devicestatus",
	}
}

func (n Names) lookup(coll model.Collection) (string, error) {
	name, ok := n[coll]
	if !ok || name == "" {
		return "", unknownCollection(coll)
	}
	return name, nil
}
