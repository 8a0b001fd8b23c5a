// Package audit writes the newline-delimited JSON audit log of accepted records.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/okian/pdmimport/internal/domain/model"
	"github.com/okian/pdmimport/pkg/metrics"
)

// Sentinel errors for the audit log.
var (
	ErrOpen   = errors.New("open audit log")
	ErrWrite  = errors.New("write audit log")
	ErrClosed = errors.New("audit log closed")
)

// Sink appends one JSON line per record. Each Record call is a single
// unbuffered write, so the file reflects progress as the dump is read.
type Sink struct {
	mu    sync.Mutex
	f     *os.File
	path  string
	count int
}

// Open truncates (or creates) the audit log at path.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return &Sink{f: f, path: path}, nil
}

// Record appends rec as one JSON line.
func (s *Sink) Record(ctx context.Context, rec model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		metrics.RecordAuditError()
		return fmt.Errorf("%w: encode: %w", ErrWrite, err)
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	if _, err := s.f.Write(b); err != nil {
		metrics.RecordAuditError()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	s.count++
	metrics.RecordAuditWrite()
	return nil
}

// Count returns the number of lines written.
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Path returns the audit log location.
func (s *Sink) Path() string {
	return s.path
}

// Close closes the file. Closing twice is a no-op.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// ReadAll reads an audit log back into field mappings, in line order.
func ReadAll(path string) ([]map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	for dec.More() {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
