package dumpgen

import "time"

// Config holds configuration for a synthetic dump.
type Config struct {
	OutputFile string        // Destination, truncated first
	NumRecords int           // Number of records to write
	Start      time.Time     // Timestamp of the first record
	Interval   time.Duration // Spacing between consecutive records
	Ignored    bool          // Mix in categories the importer ignores
}

// line is one dump entry in the shape the importer's decoder reads.
type line struct {
	RecordType string         `json:"recordType"`
	Record     map[string]any `json:"record"`
}

// Stats holds generation statistics.
type Stats struct {
	Records    int
	ByCategory map[string]int
	First      time.Time
	Last       time.Time
	Duration   time.Duration
}
