// Package summarize renders canonical activity records into compact
// natural-language summaries suitable for embedding, plus a flat metadata
// map used for filtering and display.
//
// Summarize is a pure function of its input: the same record always yields
// byte-identical text, so re-ingesting an unchanged export never produces a
// spurious re-embed. Absent optional fields are omitted entirely rather than
// rendered as placeholders.
package summarize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/scrypster/paceline/internal/activity"
)

// Source tag stamped into every document's metadata.
const Source = "garmin_connect"

// Document is the embedding unit: one summary per activity record, keyed by
// the record's stable id so repeated ingestion upserts instead of appending.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Summarize builds the RAG-friendly summary line and metadata for a record.
//
// The text is a pipe-separated sequence of labelled fragments, e.g.
//
//	date: 2024-01-05 08:00:00 | type: running | distance_km: 10 | duration: 00:50:00 | avg_pace: 05:00 min/km
//
// Foot sports report pace per km; everything else reports average speed when
// present. Embeddings work better with this compact labelled form than with
// raw numeric columns.
func Summarize(rec *activity.Record) Document {
	var pieces []string
	add := func(label, value string) {
		if value != "" {
			pieces = append(pieces, label+": "+value)
		}
	}

	add("date", rec.Start.Format("2006-01-02 15:04:05"))
	add("type", rec.Sport)
	add("name", rec.Name)
	add("location", rec.Location)

	distKM := distanceKM(rec)
	if distKM != nil {
		add("distance_km", trimFloat(*distKM, 3))
	}
	add("duration", secToHMS(rec.DurationSec))

	pace := paceMinPerKM(rec.DurationSec, rec.DistanceM)
	if rec.IsFootSport() && pace != "" {
		add("avg_pace", pace)
	} else if rec.AvgSpeedMPS != nil {
		add("avg_speed_mps", trimFloat(*rec.AvgSpeedMPS, 3))
	}

	addRounded(&pieces, "avg_hr", rec.AvgHR)
	addRounded(&pieces, "max_hr", rec.MaxHR)
	if rec.Type == activity.TypeRun {
		addRounded(&pieces, "cadence_spm", rec.CadenceSPM)
	}
	addRounded(&pieces, "elev_gain_m", rec.ElevationGainM)
	addRounded(&pieces, "training_load", rec.TrainingLoad)
	if rec.AerobicTE != nil {
		add("aerobic_te", trimFloat(*rec.AerobicTE, 1))
	}
	if rec.AnaerobicTE != nil {
		add("anaerobic_te", trimFloat(*rec.AnaerobicTE, 1))
	}
	addRounded(&pieces, "vo2max", rec.VO2Max)

	add("label", cleanLabel(rec.EffectLabel))
	add("tag", sessionTag(rec.Name, rec.EffectLabel))
	add("notes", rec.Notes)

	return Document{
		ID:       rec.ID,
		Text:     strings.Join(pieces, " | "),
		Metadata: buildMetadata(rec, distKM, pace),
	}
}

// buildMetadata extracts the scalar fields the text describes into a flat
// string map for filtering and show-context display. Empty values are
// dropped so store-level metadata filters stay usable.
func buildMetadata(rec *activity.Record, distKM *float64, pace string) map[string]string {
	meta := map[string]string{
		"source":      Source,
		"activity_id": rec.ID,
		"type":        string(rec.Type),
		"sport":       rec.Sport,
		"date":        rec.Start.Format(time.RFC3339),
		"duration_s":  trimFloat(rec.DurationSec, 0),
	}
	if distKM != nil {
		meta["distance_km"] = trimFloat(*distKM, 3)
	}
	if rec.IsFootSport() && pace != "" {
		meta["pace"] = pace
	}
	if rec.Location != "" {
		meta["location"] = rec.Location
	}
	return meta
}

// addRounded appends "label: N" with the value rounded to the nearest
// integer, skipping absent fields.
func addRounded(pieces *[]string, label string, v *float64) {
	if v != nil {
		*pieces = append(*pieces, fmt.Sprintf("%s: %d", label, int(math.Round(*v))))
	}
}

// secToHMS renders a duration in seconds as hh:mm:ss.
func secToHMS(sec float64) string {
	s := int(math.Round(sec))
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// distanceKM converts the record's distance to kilometres, rounded to 3
// decimals to keep the text stable across float formatting quirks.
func distanceKM(rec *activity.Record) *float64 {
	if rec.DistanceM == nil {
		return nil
	}
	km := math.Round(*rec.DistanceM/1000.0*1000) / 1000
	return &km
}

// paceMinPerKM renders mm:ss per km, or "" when not computable. Seconds are
// rounded and rolled over so 4:59.6 becomes 05:00, not 04:60.
func paceMinPerKM(durationSec float64, distanceM *float64) string {
	if distanceM == nil || *distanceM <= 0 {
		return ""
	}
	pace := durationSec / 60.0 / (*distanceM / 1000.0)
	mins := int(pace)
	secs := int(math.Round((pace - float64(mins)) * 60))
	if secs == 60 {
		mins++
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d min/km", mins, secs)
}

// cleanLabel turns Garmin's SHOUTY_SNAKE labels into readable Title Case.
func cleanLabel(label string) string {
	if label == "" {
		return ""
	}
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(label), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// sessionTag infers a coarse workout intent from the activity name and
// training-effect label. Keyword lists follow common Garmin naming habits.
func sessionTag(name, effectLabel string) string {
	n := strings.ToLower(name)
	l := strings.ToLower(effectLabel)
	switch {
	case containsAny(n, "tempo", "threshold", "lt", "lactate") || containsAny(l, "tempo", "threshold", "lactate"):
		return "tempo"
	case containsAny(n, "easy", "recovery", "z2", "base"):
		return "easy"
	case containsAny(n, "interval", "vo2", "reps", "yasso"):
		return "intervals"
	default:
		return ""
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// trimFloat formats v with at most prec decimals and no trailing zeros, so
// "10.000" km renders as "10" and "5.25" stays "5.25".
func trimFloat(v float64, prec int) string {
	scale := math.Pow10(prec)
	return strconv.FormatFloat(math.Round(v*scale)/scale, 'f', -1, 64)
}
