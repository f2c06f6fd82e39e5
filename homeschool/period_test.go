package homeschool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/homeschool-tracker/homeschool"
)

func TestDateRange_Validate(t *testing.T) {
	ok := homeschool.DateRange{Start: date("2024-09-01"), End: date("2024-09-01")}
	assert.NoError(t, ok.Validate(), "single day is valid")

	var verr *homeschool.ValidationError
	err := homeschool.DateRange{Start: date("2024-09-02"), End: date("2024-09-01")}.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "end", verr.Field)

	err = homeschool.DateRange{End: date("2024-09-01")}.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "start", verr.Field)
}

func TestDateRange_LenAndDays(t *testing.T) {
	r := homeschool.DateRange{Start: date("2024-09-01"), End: date("2024-09-30")}
	assert.Equal(t, 30, r.Len())
	days := r.Days()
	require.Len(t, days, 30)
	assert.Equal(t, "2024-09-30", days[29].String())

	assert.True(t, r.Contains(date("2024-09-01")))
	assert.True(t, r.Contains(date("2024-09-30")))
	assert.False(t, r.Contains(date("2024-10-01")))

	assert.Equal(t, 0, homeschool.DateRange{Start: date("2024-09-02"), End: date("2024-09-01")}.Len())
}

func TestDateRange_LenAcrossLeapDay(t *testing.T) {
	r := homeschool.DateRange{Start: date("2024-02-28"), End: date("2024-03-01")}
	assert.Equal(t, 3, r.Len())
}

func TestPresets(t *testing.T) {
	// GIVEN: Today is 2024-10-15 and no school year configured
	// WHEN: Listing presets
	// THEN: School year defaults to Sep-Jun, others are relative to today

	presets := homeschool.Presets(date("2024-10-15"), nil)
	require.Len(t, presets, 4)

	got := make(map[string]string)
	for _, p := range presets {
		got[p.Label] = p.Range.String()
	}
	assert.Equal(t, map[string]string{
		"Current School Year": "[2024-09-01, 2025-06-30]",
		"Last 30 Days":        "[2024-09-15, 2024-10-15]",
		"Last 90 Days":        "[2024-07-17, 2024-10-15]",
		"This Month":          "[2024-10-01, 2024-10-31]",
	}, got)
}

func TestPresets_UsesConfiguredSchoolYear(t *testing.T) {
	y := &homeschool.SchoolYear{StartDate: date("2024-08-19"), EndDate: date("2025-05-23")}
	presets := homeschool.Presets(date("2024-10-15"), y)
	assert.Equal(t, "Current School Year", presets[0].Label)
	assert.Equal(t, y.Range(), presets[0].Range)
}
