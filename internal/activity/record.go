// Package activity converts raw Garmin Connect export rows into canonical,
// typed activity records. Normalization is a pure per-row function: one raw
// row in, one Record (or a MalformedRecordError) out, so a batch ingest can
// account for every bad row without aborting.
package activity

import (
	"strings"
	"time"
)

// Type is the coarse activity classification used for summary phrasing and
// metadata filtering. The raw Garmin sport key is kept alongside it on the
// Record because the summarizer needs the finer distinction (e.g. treadmill
// vs trail running).
type Type string

const (
	TypeRun   Type = "run"
	TypeBike  Type = "bike"
	TypeSwim  Type = "swim"
	TypeOther Type = "other"
)

// Record is the canonical in-memory form of one exported activity.
// It is immutable after normalization; the summarizer is its only consumer.
//
// Optional numeric fields are pointers: nil means the export did not carry
// the value, which is different from a legitimate zero (a 0 bpm heart rate
// would bias summaries, an absent one is simply omitted).
type Record struct {
	ID    string
	Type  Type
	Sport string // raw Garmin typeKey, e.g. "trail_running"
	Name  string
	Start time.Time

	DurationSec float64

	DistanceM      *float64
	AvgSpeedMPS    *float64
	ElevationGainM *float64
	AvgHR          *float64
	MaxHR          *float64
	CadenceSPM     *float64
	TrainingLoad   *float64
	AerobicTE      *float64
	AnaerobicTE    *float64
	VO2Max         *float64

	EffectLabel string // Garmin trainingEffectLabel, e.g. "TEMPO"
	Location    string
	Notes       string
}

// classify maps a Garmin sport key to the coarse Type buckets.
func classify(sport string) Type {
	s := strings.ToLower(sport)
	switch {
	case strings.Contains(s, "running"):
		return TypeRun
	case strings.Contains(s, "cycling"), strings.Contains(s, "biking"), strings.Contains(s, "ride"):
		return TypeBike
	case strings.Contains(s, "swimming"), strings.Contains(s, "swim"):
		return TypeSwim
	default:
		return TypeOther
	}
}

// IsFootSport reports whether pace-per-km is the natural intensity measure
// for this record. Cycling and swimming summaries use average speed instead.
func (r *Record) IsFootSport() bool {
	s := strings.ToLower(r.Sport)
	if strings.Contains(s, "running") {
		return true
	}
	return s == "hiking" || s == "walking"
}
