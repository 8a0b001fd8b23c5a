// Package bucket routes normalized records into per-category buckets and
// folds them into the three target collections.
package bucket

import (
	"errors"
	"fmt"

	"github.com/okian/pdmimport/internal/domain/model"
	"github.com/okian/pdmimport/internal/domain/normalize"
)

// ErrUnknownBucket is returned for categories with no target collection.
var ErrUnknownBucket = errors.New("no bucket for category")

// Bucket names, in assembly order.
var names = []string{
	model.CategoryBloodGlucose.Name(),
	model.CategoryBolus.Name(),
	model.CategoryCarb.Name(),
	model.CategoryActivate.Name(),
	model.CategoryDeactivate.Name(),
	model.CategoryDownload.Name(),
}

// Assembler owns the buckets for one run. It is not safe for concurrent use.
type Assembler struct {
	buckets map[string][]model.Record
}

// New returns an empty Assembler.
func New() *Assembler {
	a := &Assembler{buckets: make(map[string][]model.Record, len(names))}
	for _, n := range names {
		a.buckets[n] = nil
	}
	return a
}

// Append pushes rec onto the bucket for its category.
func (a *Assembler) Append(rec model.Record) error {
	b, ok := a.buckets[rec.Category]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBucket, rec.Category)
	}
	a.buckets[rec.Category] = append(b, rec)
	return nil
}

// Counts returns the number of records held per bucket.
func (a *Assembler) Counts() map[string]int {
	out := make(map[string]int, len(a.buckets))
	for n, b := range a.buckets {
		out[n] = len(b)
	}
	return out
}

// Len returns the total number of records held.
func (a *Assembler) Len() int {
	total := 0
	for _, b := range a.buckets {
		total += len(b)
	}
	return total
}

// Assemble folds the buckets into collection documents. Order within a
// bucket is append order; treatments are bolus then carb, status events are
// activate, deactivate then download.
func (a *Assembler) Assemble() model.Collections {
	bg := a.buckets[model.CategoryBloodGlucose.Name()]
	bolus := a.buckets[model.CategoryBolus.Name()]
	carb := a.buckets[model.CategoryCarb.Name()]

	var out model.Collections

	out.GlucoseReadings = make([]model.GlucoseReading, 0, len(bg))
	for _, r := range bg {
		out.GlucoseReadings = append(out.GlucoseReadings, model.GlucoseReading{
			Date:   r.Timestamp,
			SVG:    r.Fields[model.FieldBGReading],
			Source: source(r),
		})
	}

	out.TreatmentEvents = make([]any, 0, len(bolus)+len(carb))
	for _, r := range bolus {
		t := model.BolusTreatment{
			Timestamp: r.Timestamp,
			Insulin:   r.Fields[model.FieldUnits],
			Source:    source(r),
		}
		if d, ok := r.Fields[model.FieldExtendedDurationMinutes]; ok && d != nil && !normalize.IsZero(d) {
			t.ExtendedDurationMinutes = d
		}
		out.TreatmentEvents = append(out.TreatmentEvents, t)
	}
	for _, r := range carb {
		out.TreatmentEvents = append(out.TreatmentEvents, document(r))
	}

	out.StatusEvents = make([]model.Document, 0)
	for _, c := range []model.Category{model.CategoryActivate, model.CategoryDeactivate, model.CategoryDownload} {
		for _, r := range a.buckets[c.Name()] {
			out.StatusEvents = append(out.StatusEvents, document(r))
		}
	}

	return out
}

func source(r model.Record) bool {
	s, _ := r.Fields[model.FieldSource].(bool)
	return s
}

func document(r model.Record) model.Document {
	d := make(model.Document, len(r.Fields))
	for k, v := range r.Fields {
		d[k] = v
	}
	return d
}
