package repository

import (
	"errors"
	"fmt"

	"github.com/okian/pdmimport/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrConnect           = errors.New("store connect failed")
	ErrInsert            = errors.New("insert failed")
	ErrPurge             = errors.New("purge failed")
	ErrClosed            = errors.New("store closed")
)

func unknownCollection(coll model.Collection) error {
	return fmt.Errorf("%w: %q", ErrUnknownCollection, coll)
}
