// Package normalize filters decoded pump records and projects them into the
// normalized shape stored by the importer.
package normalize

import (
	"github.com/okian/pdmimport/internal/domain/model"
)

// Verdict is the outcome of normalizing one record.
type Verdict int

// Verdicts.
const (
	VerdictAccepted Verdict = iota
	VerdictIgnored
	VerdictStale
	VerdictBadTimestamp
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictIgnored:
		return "ignored"
	case VerdictStale:
		return "stale"
	case VerdictBadTimestamp:
		return "bad_timestamp"
	default:
		return "unknown"
	}
}

// Normalizer applies the per-category projection for a single run.
type Normalizer struct {
	watermark model.Watermark
}

// New returns a Normalizer that rejects records at or below watermark.
func New(watermark model.Watermark) *Normalizer {
	return &Normalizer{watermark: watermark}
}

// Watermark returns the cutoff used by the normalizer.
func (n *Normalizer) Watermark() model.Watermark {
	return n.watermark
}

// Normalize filters raw and, when accepted, returns its normalized form.
// The input mapping is never modified or aliased.
func (n *Normalizer) Normalize(raw model.RawRecord) (model.Record, Verdict) {
	if !Accept(raw.Category) {
		return model.Record{}, VerdictIgnored
	}

	ts, err := model.ParseTimestamp(raw.Fields[model.FieldTimestamp])
	if err != nil {
		return model.Record{}, VerdictBadTimestamp
	}
	if ts <= int64(n.watermark) {
		return model.Record{}, VerdictStale
	}

	r := ruleFor(raw.Category)
	skip := make(map[string]struct{}, len(commonDropped)+len(r.dropped))
	for _, f := range commonDropped {
		skip[f] = struct{}{}
	}
	for _, f := range r.dropped {
		skip[f] = struct{}{}
	}
	for _, f := range r.dropIfZero {
		if v, ok := raw.Fields[f]; ok && IsZero(v) {
			skip[f] = struct{}{}
		}
	}

	name := raw.Category.Name()
	fields := make(map[string]any, len(raw.Fields)+2)
	for k, v := range raw.Fields {
		if _, drop := skip[k]; drop {
			continue
		}
		fields[k] = clone(v)
	}
	fields[model.FieldTimestamp] = ts
	fields[model.FieldSource] = true
	if r.marker {
		fields[model.FieldType] = name
	}

	return model.Record{Category: name, Timestamp: ts, Fields: fields}, VerdictAccepted
}

// clone copies nested containers so the output never shares state with the
// decoder's mapping.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	default:
		return v
	}
}
