// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"strings"
)

// Category is the pump's native event-kind tag for a decoded record.
type Category string

// Imported categories.
const (
	CategoryBloodGlucose Category = "BLOOD_GLUCOSE"
	CategoryBolus        Category = "BOLUS"
	CategoryCarb         Category = "CARB"
	CategoryActivate     Category = "ACTIVATE"
	CategoryDeactivate   Category = "DEACTIVATE"
	CategoryDownload     Category = "DOWNLOAD"
)

// Internal pump categories with no import value.
const (
	CategoryBasalRate         Category = "BASAL_RATE"
	CategorySuggestedCalc     Category = "SUGGESTED_CALC"
	CategoryTerminateBolus    Category = "TERMINATE_BOLUS"
	CategoryTimeChange        Category = "TIME_CHANGE"
	CategoryDateChange        Category = "DATE_CHANGE"
	CategoryRemoteHazardAlarm Category = "REMOTE_HAZARD_ALARM"
	CategoryResume            Category = "RESUME"
	CategorySuspend           Category = "SUSPEND"
	CategoryTerminateBasal    Category = "TERMINATE_BASAL"
	CategoryEndMarker         Category = "END_MARKER"
	CategoryPumpAlarm         Category = "PUMP_ALARM"
)

// Name returns the lowercased category name used for buckets and type markers.
func (c Category) Name() string {
	return strings.ToLower(string(c))
}

// Field names shared across layers.
const (
	FieldTimestamp               = "timestamp"
	FieldSource                  = "source"
	FieldType                    = "type"
	FieldUnits                   = "units"
	FieldBGReading               = "bgReading"
	FieldExtendedDurationMinutes = "extendedDurationMinutes"
)

// RawRecord is a record exactly as produced by the decoder.
type RawRecord struct {
	Category Category
	Fields   map[string]any
}

// Watermark is the timestamp (ms since epoch) of the newest download event
// already present in the store. Only records strictly newer are imported.
type Watermark int64

// Record is a normalized record. Fields always holds timestamp and source,
// plus type for marker categories.
type Record struct {
	Category  string // lowercased
	Timestamp int64
	Fields    map[string]any
}

// MarshalJSON encodes the record as its flat field mapping.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields)
}

// Document is an untyped store document.
type Document map[string]any
