package activity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/paceline/internal/activity"
)

func validRow() activity.Row {
	return activity.Row{
		"activityId":           "101",
		"activityType.typeKey": "running",
		"startTimeLocal":       "2024-01-05 08:00:00",
		"duration":             "3000",
		"distance":             "10000",
		"averageHR":            "152",
	}
}

func TestNormalize_ValidRow(t *testing.T) {
	rec, err := activity.Normalize(validRow())
	require.NoError(t, err)

	assert.Equal(t, "101", rec.ID)
	assert.Equal(t, activity.TypeRun, rec.Type)
	assert.Equal(t, "running", rec.Sport)
	assert.Equal(t, time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC), rec.Start)
	assert.Equal(t, 3000.0, rec.DurationSec)
	require.NotNil(t, rec.DistanceM)
	assert.Equal(t, 10000.0, *rec.DistanceM)
	require.NotNil(t, rec.AvgHR)
	assert.Equal(t, 152.0, *rec.AvgHR)
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		drop      []string
		wantField string
	}{
		{"missing id", []string{"activityId"}, "activityId"},
		{"missing type", []string{"activityType.typeKey"}, "activityType.typeKey"},
		{"missing start", []string{"startTimeLocal"}, "startTimeLocal"},
		{"missing duration", []string{"duration"}, "duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			for _, k := range tt.drop {
				delete(row, k)
			}

			_, err := activity.Normalize(row)
			require.Error(t, err)

			var malformed *activity.MalformedRecordError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.wantField, malformed.Field)
		})
	}
}

func TestNormalize_UnparseableRequiredFields(t *testing.T) {
	row := validRow()
	row["startTimeLocal"] = "not-a-date"
	_, err := activity.Normalize(row)
	var malformed *activity.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "startTimeLocal", malformed.Field)

	row = validRow()
	row["duration"] = "-10"
	_, err = activity.Normalize(row)
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "duration", malformed.Field)
}

func TestNormalize_OptionalFieldsStayAbsent(t *testing.T) {
	row := validRow()
	delete(row, "distance")
	delete(row, "averageHR")
	row["elevationGain"] = "garbage" // unparseable optional values are tolerated

	rec, err := activity.Normalize(row)
	require.NoError(t, err)

	assert.Nil(t, rec.DistanceM, "missing distance must stay absent, not default to zero")
	assert.Nil(t, rec.AvgHR)
	assert.Nil(t, rec.ElevationGainM)
}

func TestNormalize_DurationAliases(t *testing.T) {
	row := validRow()
	delete(row, "duration")
	row["movingDuration"] = "1800"

	rec, err := activity.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, 1800.0, rec.DurationSec)
}

func TestNormalize_TypeClassification(t *testing.T) {
	tests := []struct {
		sport string
		want  activity.Type
	}{
		{"running", activity.TypeRun},
		{"trail_running", activity.TypeRun},
		{"treadmill_running", activity.TypeRun},
		{"cycling", activity.TypeBike},
		{"mountain_biking", activity.TypeBike},
		{"lap_swimming", activity.TypeSwim},
		{"open_water_swimming", activity.TypeSwim},
		{"strength_training", activity.TypeOther},
	}

	for _, tt := range tests {
		row := validRow()
		row["activityType.typeKey"] = tt.sport
		rec, err := activity.Normalize(row)
		require.NoError(t, err)
		assert.Equal(t, tt.want, rec.Type, "sport %q", tt.sport)
	}
}

func TestIsFootSport(t *testing.T) {
	run := &activity.Record{Sport: "trail_running"}
	assert.True(t, run.IsFootSport())

	hike := &activity.Record{Sport: "hiking"}
	assert.True(t, hike.IsFootSport())

	ride := &activity.Record{Sport: "cycling"}
	assert.False(t, ride.IsFootSport())
}
