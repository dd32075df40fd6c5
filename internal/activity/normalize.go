package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one raw export row keyed by column name. Garmin Connect CSV exports
// use dotted keys for nested JSON fields ("activityType.typeKey").
type Row map[string]string

// MalformedRecordError reports a row that failed normalization, naming the
// missing or unparseable field. It is recoverable: the ingest pipeline counts
// the row as failed and continues with the rest of the batch.
type MalformedRecordError struct {
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: field %q: %s", e.Field, e.Reason)
}

// startTimeLayouts are the timestamp formats seen in Garmin Connect exports.
var startTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize validates and coerces one raw row into a Record.
//
// Required fields are the activity id, the sport key, the start timestamp and
// the duration; any of them missing or unparseable yields a
// MalformedRecordError. Optional numeric fields that are missing or
// unparseable are left absent rather than defaulted to zero.
func Normalize(row Row) (*Record, error) {
	id := first(row, "activityId", "activity_id")
	if id == "" {
		return nil, &MalformedRecordError{Field: "activityId", Reason: "required field is missing"}
	}

	sport := first(row, "activityType.typeKey", "type_key", "type")
	if sport == "" {
		return nil, &MalformedRecordError{Field: "activityType.typeKey", Reason: "required field is missing"}
	}

	startRaw := first(row, "startTimeLocal", "startTimeGMT", "start_time")
	if startRaw == "" {
		return nil, &MalformedRecordError{Field: "startTimeLocal", Reason: "required field is missing"}
	}
	start, err := parseStart(startRaw)
	if err != nil {
		return nil, &MalformedRecordError{Field: "startTimeLocal", Reason: fmt.Sprintf("unparseable timestamp %q", startRaw)}
	}

	durRaw := first(row, "duration", "movingDuration", "elapsedDuration", "duration_s")
	if durRaw == "" {
		return nil, &MalformedRecordError{Field: "duration", Reason: "required field is missing"}
	}
	dur, err := strconv.ParseFloat(durRaw, 64)
	if err != nil || dur <= 0 {
		return nil, &MalformedRecordError{Field: "duration", Reason: fmt.Sprintf("not a positive number: %q", durRaw)}
	}

	rec := &Record{
		ID:          id,
		Type:        classify(sport),
		Sport:       sport,
		Name:        first(row, "activityName", "name"),
		Start:       start,
		DurationSec: dur,
		EffectLabel: first(row, "trainingEffectLabel"),
		Location:    first(row, "locationName", "location"),
		Notes:       first(row, "description", "notes"),
	}

	rec.DistanceM = optFloat(row, "distance", "distance_m")
	rec.AvgSpeedMPS = optFloat(row, "averageSpeed")
	rec.ElevationGainM = optFloat(row, "elevationGain")
	rec.AvgHR = optFloat(row, "averageHR", "avg_hr")
	rec.MaxHR = optFloat(row, "maxHR", "max_hr")
	rec.CadenceSPM = optFloat(row, "averageRunningCadenceInStepsPerMinute")
	rec.TrainingLoad = optFloat(row, "activityTrainingLoad", "trainingLoad")
	rec.AerobicTE = optFloat(row, "aerobicTrainingEffect")
	rec.AnaerobicTE = optFloat(row, "anaerobicTrainingEffect")
	rec.VO2Max = optFloat(row, "vO2MaxValue")

	return rec, nil
}

func parseStart(raw string) (time.Time, error) {
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// first returns the first non-empty value among the given column names.
// Garmin exports are inconsistent about which of several near-synonymous
// columns carries a value, so lookups coalesce across known aliases.
func first(row Row, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(row[k]); v != "" {
			return v
		}
	}
	return ""
}

// optFloat parses an optional numeric column. Missing or unparseable values
// stay absent (nil) so downstream summaries omit them instead of printing
// misleading zeros.
func optFloat(row Row, keys ...string) *float64 {
	raw := first(row, keys...)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
