package homeschool_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/homeschool-tracker/homeschool"
)

func TestParseDate(t *testing.T) {
	d, err := homeschool.ParseDate(" 2024-09-03 ")
	require.NoError(t, err)
	assert.Equal(t, homeschool.NewDate(2024, time.September, 3), d)
	assert.Equal(t, "2024-09-03", d.String())

	for _, bad := range []string{"", "2024-9-3", "03/09/2024", "2024-02-30"} {
		_, err := homeschool.ParseDate(bad)
		assert.ErrorIs(t, err, homeschool.ErrValidation, bad)
	}
}

func TestDate_OrderingMatchesISOStrings(t *testing.T) {
	a, b := date("2024-09-30"), date("2024-10-01")
	assert.True(t, a.Before(b))
	assert.True(t, a.String() < b.String())
	assert.True(t, a.BeforeOrEqual(a))
	assert.True(t, b.AfterOrEqual(a))
}

func TestDateOf_DropsClockTime(t *testing.T) {
	d := homeschool.DateOf(time.Date(2024, time.March, 10, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-10", d.String())
	assert.Equal(t, date("2024-03-10"), d)
}

func TestDate_JSON(t *testing.T) {
	var r homeschool.Record
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-09-03","childId":"a","subjectId":"b","completed":true}`), &r))
	assert.Equal(t, "2024-09-03", r.Date.String())

	out, err := json.Marshal(homeschool.SchoolYear{StartDate: date("2024-09-01"), EndDate: date("2025-06-30")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"startDate":"2024-09-01","endDate":"2025-06-30"}`, string(out))

	err = json.Unmarshal([]byte(`{"date":"yesterday"}`), &r)
	assert.ErrorIs(t, err, homeschool.ErrValidation)
}

func TestDate_Scan(t *testing.T) {
	var d homeschool.Date
	require.NoError(t, d.Scan("2024-09-03"))
	assert.Equal(t, "2024-09-03", d.String())

	require.NoError(t, d.Scan([]byte("2024-09-04")))
	assert.Equal(t, "2024-09-04", d.String())

	require.NoError(t, d.Scan(time.Date(2024, time.September, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-09-05", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

func TestEndOfMonth(t *testing.T) {
	assert.Equal(t, "2024-02-29", homeschool.EndOfMonth(2024, time.February).String())
	assert.Equal(t, "2024-12-31", homeschool.EndOfMonth(2024, time.December).String())
}
