package decoder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/okian/pdmimport/internal/domain/model"
)

const (
	defaultMaxLineBytes = 1 << 20
	initialBufferBytes  = 64 * 1024
)

// line is the envelope emitted by the upstream binary reader.
type line struct {
	RecordType string         `json:"recordType"`
	Record     map[string]any `json:"record"`
}

// JSONLines reads a dump already decoded to newline-delimited JSON, one
// {"recordType": ..., "record": {...}} object per line.
type JSONLines struct {
	maxLineBytes int
}

// Option configures a JSONLines decoder.
type Option func(*JSONLines)

// WithMaxLineBytes bounds the size of a single line.
func WithMaxLineBytes(n int) Option {
	return func(d *JSONLines) {
		if n > 0 {
			d.maxLineBytes = n
		}
	}
}

// NewJSONLines returns a JSONLines decoder.
func NewJSONLines(opts ...Option) *JSONLines {
	d := &JSONLines{maxLineBytes: defaultMaxLineBytes}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode implements Decoder.
func (d *JSONLines) Decode(ctx context.Context, path string, fn HandlerFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenDump, err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	// The scanner accepts tokens up to max(cap(buf), maxLineBytes).
	sc.Buffer(make([]byte, 0, min(initialBufferBytes, d.maxLineBytes)), d.maxLineBytes)

	n := 0
	for sc.Scan() {
		n++
		if err := ctx.Err(); err != nil {
			return err
		}
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		rec, err := parseLine(b)
		if err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrMalformedRecord, n, err)
		}
		if err := fn(ctx, rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: line %d: %w", ErrMalformedRecord, n+1, err)
	}
	return nil
}

func parseLine(b []byte) (model.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var l line
	if err := dec.Decode(&l); err != nil {
		return model.RawRecord{}, err
	}
	if l.RecordType == "" {
		return model.RawRecord{}, fmt.Errorf("missing recordType")
	}
	if l.Record == nil {
		l.Record = map[string]any{}
	}
	fields, _ := convertNumbers(l.Record).(map[string]any)
	return model.RawRecord{Category: model.Category(l.RecordType), Fields: fields}, nil
}

// convertNumbers replaces json.Number values with int64 when integral and
// float64 otherwise.
func convertNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = convertNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = convertNumbers(e)
		}
		return t
	default:
		return v
	}
}
