package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Date
		wantErr bool
	}{
		{name: "date only", in: "2024-03-01", want: Date{2024, time.March, 1}},
		{name: "iso timestamp keeps date prefix", in: "2024-03-01T23:00:00.000Z", want: Date{2024, time.March, 1}},
		{name: "offset ignored", in: "2024-03-01T01:00:00+09:00", want: Date{2024, time.March, 1}},
		{name: "space separated", in: "2024-03-01 08:00", want: Date{2024, time.March, 1}},
		{name: "too short", in: "2024-3-1", wantErr: true},
		{name: "garbage suffix", in: "2024-03-01xx", wantErr: true},
		{name: "invalid day", in: "2024-02-30", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate_AddMonthsClamps(t *testing.T) {
	jan31 := Date{2024, time.January, 31}

	assert.Equal(t, Date{2024, time.February, 29}, jan31.AddMonths(1))
	assert.Equal(t, Date{2024, time.March, 31}, jan31.AddMonths(2))
	assert.Equal(t, Date{2024, time.April, 30}, jan31.AddMonths(3))
	assert.Equal(t, Date{2025, time.February, 28}, jan31.AddMonths(13))
	assert.Equal(t, Date{2023, time.December, 31}, jan31.AddMonths(-1))
	assert.Equal(t, Date{2023, time.November, 30}, jan31.AddMonths(-2))
}

func TestDate_AddDaysCrossesBoundaries(t *testing.T) {
	assert.Equal(t, Date{2024, time.March, 1}, Date{2024, time.February, 28}.AddDays(2))
	assert.Equal(t, Date{2025, time.January, 1}, Date{2024, time.December, 31}.AddDays(1))
	assert.Equal(t, Date{2023, time.February, 28}, Date{2023, time.March, 1}.AddDays(-1))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2023, time.February))
	assert.Equal(t, 28, DaysIn(1900, time.February))
	assert.Equal(t, 29, DaysIn(2000, time.February))
	assert.Equal(t, 30, DaysIn(2024, time.April))
	assert.Equal(t, 31, DaysIn(2024, time.December))
}

func TestDate_Compare(t *testing.T) {
	a := Date{2024, time.March, 1}
	b := Date{2024, time.March, 2}

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.True(t, Date{2023, time.December, 31}.Before(a))
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		Date Date `json:"date"`
	}

	b, err := json.Marshal(wrapper{Date: Date{2024, time.March, 5}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-03-05"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-03-01T23:00:00.000Z"}`), &w))
	assert.Equal(t, Date{2024, time.March, 1}, w.Date)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"yesterday"}`), &w))
}
