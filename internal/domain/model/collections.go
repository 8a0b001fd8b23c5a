package model

// Collection names a logical target collection. Adapters map these to
// physical collection names.
type Collection string

// Target collections.
const (
	CollectionGlucose    Collection = "glucose"
	CollectionTreatments Collection = "treatments"
	CollectionStatus     Collection = "status"
)

// AllCollections lists target collections in flush order.
var AllCollections = []Collection{CollectionGlucose, CollectionTreatments, CollectionStatus}

// GlucoseReading is a blood glucose document.
type GlucoseReading struct {
	Date   int64 `json:"date" bson:"date"`
	SVG    any   `json:"svg" bson:"svg"`
	Source bool  `json:"source" bson:"source"`
}

// BolusTreatment is a bolus delivery document. ExtendedDurationMinutes is
// nil unless the bolus was extended.
type BolusTreatment struct {
	Timestamp               int64 `json:"timestamp" bson:"timestamp"`
	Insulin                 any   `json:"insulin" bson:"insulin"`
	ExtendedDurationMinutes any   `json:"extendedDurationMinutes,omitempty" bson:"extendedDurationMinutes,omitempty"`
	Source                  bool  `json:"source" bson:"source"`
}

// Collections holds the three assembled document sequences.
// TreatmentEvents holds BolusTreatment values followed by carb Documents.
type Collections struct {
	GlucoseReadings []GlucoseReading
	TreatmentEvents []any
	StatusEvents    []Document
}

// Documents returns the documents for a collection as a slice suitable for
// bulk inserts.
func (c Collections) Documents(coll Collection) []any {
	switch coll {
	case CollectionGlucose:
		docs := make([]any, len(c.GlucoseReadings))
		for i, g := range c.GlucoseReadings {
			docs[i] = g
		}
		return docs
	case CollectionTreatments:
		return append([]any(nil), c.TreatmentEvents...)
	case CollectionStatus:
		docs := make([]any, len(c.StatusEvents))
		for i, d := range c.StatusEvents {
			docs[i] = d
		}
		return docs
	default:
		return nil
	}
}

// Len returns the total number of documents.
func (c Collections) Len() int {
	return len(c.GlucoseReadings) + len(c.TreatmentEvents) + len(c.StatusEvents)
}
