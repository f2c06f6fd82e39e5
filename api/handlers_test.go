/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Child and subject CRUD with cascade
- Record toggle, day grid and record queries
- School year, summary, preset ranges
- XLSX report download
- Error kind to status mapping
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/homeschool-tracker/api"
	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/homeschool/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var fixedNow = time.Date(2024, time.October, 15, 14, 5, 0, 0, time.UTC)

func newTestRouter(t *testing.T, s homeschool.Store) http.Handler {
	t.Helper()
	if s == nil {
		s = store.NewMemory()
	}
	seq := 0
	tr, err := homeschool.New(context.Background(), s,
		homeschool.WithClock(func() time.Time { return fixedNow }),
		homeschool.WithIDGenerator(func(c homeschool.Collection) string {
			seq++
			return fmt.Sprintf("%s-%d", c.Singular(), seq)
		}),
	)
	require.NoError(t, err)

	h := api.NewHandler(tr, log.New(io.Discard, "", 0))
	h.Now = func() time.Time { return fixedNow }
	return api.NewRouter(h, nil)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func toggle(t *testing.T, h http.Handler, date, child, subject string) bool {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/records/toggle", api.ToggleRequest{Date: date, ChildID: child, SubjectID: subject})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[api.ToggleResponse](t, rec).Completed
}

// =============================================================================
// ENTITIES
// =============================================================================

func TestChildren_CRUD(t *testing.T) {
	h := newTestRouter(t, nil)

	// GIVEN: A fresh tracker seeded with three children
	rec := do(t, h, http.MethodGet, "/api/children", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	children := decode[[]api.EntityDTO](t, rec)
	require.Len(t, children, 3)
	assert.Equal(t, api.EntityDTO{ID: "child-a", Name: "Child A", Order: 0}, children[0])

	// WHEN: Adding a child
	rec = do(t, h, http.MethodPost, "/api/children", api.CreateEntityRequest{Name: "Dana"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[api.CreatedResponse](t, rec).ID
	assert.Equal(t, "child-1", id)

	// THEN: Renaming keeps the order when none is sent
	rec = do(t, h, http.MethodPut, "/api/children/"+id, `{"name":"Dana R"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.EntityDTO{ID: id, Name: "Dana R", Order: 3}, decode[api.EntityDTO](t, rec))

	rec = do(t, h, http.MethodDelete, "/api/children/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/children/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[api.ErrorResponse](t, rec).Code)
}

func TestSubjects_ReorderAndUnknown(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPut, "/api/subjects/pe", `{"name":"PE","order":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/subjects", nil)
	subjects := decode[[]api.EntityDTO](t, rec)
	require.Len(t, subjects, 8)
	// Order ties keep insertion order, so Math (order 0) stays ahead of PE.
	assert.Equal(t, "math", subjects[0].ID)
	assert.Equal(t, "pe", subjects[1].ID)

	rec = do(t, h, http.MethodPut, "/api/subjects/latin", `{"name":"Latin"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/subjects/math", `{"name":"Math","order":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "order", decode[api.ErrorResponse](t, rec).Field)
}

func TestCreateChild_Validation(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{}`},
		{"blank name", `{"name":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/children", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[api.ErrorResponse](t, rec)
			assert.Equal(t, "validation", resp.Code)
			assert.Equal(t, "name", resp.Field)
		})
	}

	rec := do(t, h, http.MethodPost, "/api/children", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSubject_CascadesRecords(t *testing.T) {
	h := newTestRouter(t, nil)
	require.True(t, toggle(t, h, "2024-09-03", "child-a", "math"))
	require.True(t, toggle(t, h, "2024-09-03", "child-a", "reading"))

	rec := do(t, h, http.MethodDelete, "/api/subjects/math", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/records?date=2024-09-03", nil)
	records := decode[api.RecordsResponse](t, rec).Records
	require.Len(t, records, 1)
	assert.Equal(t, "reading", records[0].SubjectID)
}

// =============================================================================
// RECORDS
// =============================================================================

func TestToggleRecord(t *testing.T) {
	h := newTestRouter(t, nil)

	// GIVEN: An unchecked cell
	// WHEN: Toggling it twice
	// THEN: It reports true, then false
	assert.True(t, toggle(t, h, "2024-09-03", "child-a", "math"))
	assert.False(t, toggle(t, h, "2024-09-03", "child-a", "math"))

	rec := do(t, h, http.MethodGet, "/api/records?date=2024-09-03", nil)
	assert.Empty(t, decode[api.RecordsResponse](t, rec).Records)
}

func TestToggleRecord_Errors(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"bad date", `{"date":"09/03/2024","childId":"child-a","subjectId":"math"}`, http.StatusBadRequest, "date"},
		{"missing child", `{"date":"2024-09-03","subjectId":"math"}`, http.StatusBadRequest, "childId"},
		{"snake case keys", `{"date":"2024-09-03","child_id":"child-a","subject_id":"math"}`, http.StatusBadRequest, "childId"},
		{"unknown child", `{"date":"2024-09-03","childId":"child-z","subjectId":"math"}`, http.StatusNotFound, ""},
		{"unknown subject", `{"date":"2024-09-03","childId":"child-a","subjectId":"latin"}`, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/records/toggle", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.field, decode[api.ErrorResponse](t, rec).Field)
		})
	}
}

func TestGetDay(t *testing.T) {
	h := newTestRouter(t, nil)
	toggle(t, h, "2024-09-03", "child-b", "reading")
	toggle(t, h, "2024-09-03", "child-a", "science")
	toggle(t, h, "2024-09-03", "child-a", "math")
	toggle(t, h, "2024-09-04", "child-c", "pe")

	rec := do(t, h, http.MethodGet, "/api/days/2024-09-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	day := decode[api.DayDTO](t, rec)

	assert.Equal(t, "2024-09-03", day.Date)
	assert.Len(t, day.Children, 3)
	assert.Len(t, day.Subjects, 8)
	assert.Equal(t, []homeschool.Cell{
		{ChildID: "child-a", SubjectID: "math"},
		{ChildID: "child-a", SubjectID: "science"},
		{ChildID: "child-b", SubjectID: "reading"},
	}, day.Completed)

	rec = do(t, h, http.MethodGet, "/api/days/tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRecords(t *testing.T) {
	h := newTestRouter(t, nil)
	toggle(t, h, "2024-09-02", "child-a", "math")
	toggle(t, h, "2024-09-03", "child-b", "math")
	toggle(t, h, "2024-09-03", "child-a", "math")
	toggle(t, h, "2024-09-10", "child-a", "math")

	rec := do(t, h, http.MethodGet, "/api/records?start=2024-09-02&end=2024-09-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[api.RecordsResponse](t, rec).Records, 3)

	rec = do(t, h, http.MethodGet, "/api/records?date=2024-09-03&childId=child-b", nil)
	records := decode[api.RecordsResponse](t, rec).Records
	require.Len(t, records, 1)
	assert.Equal(t, "child-b", records[0].ChildID)

	rec = do(t, h, http.MethodGet, "/api/records?start=2024-09-10&end=2024-09-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "end", decode[api.ErrorResponse](t, rec).Field)

	rec = do(t, h, http.MethodGet, "/api/records?start=2024-09-10", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/records", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SCHOOL YEAR / SUMMARY
// =============================================================================

func TestSchoolYear(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/school-year", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"startDate":"2024-09-01","endDate":"2025-06-30"}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/school-year", api.SchoolYearRequest{StartDate: "2025-08-15", EndDate: "2025-05-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "endDate", decode[api.ErrorResponse](t, rec).Field)

	rec = do(t, h, http.MethodPut, "/api/school-year", api.SchoolYearRequest{StartDate: "2025-08-15", EndDate: "2026-05-29"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/school-year", nil)
	assert.JSONEq(t, `{"startDate":"2025-08-15","endDate":"2026-05-29"}`, rec.Body.String())
}

func TestGetSummary(t *testing.T) {
	h := newTestRouter(t, nil)
	toggle(t, h, "2024-09-03", "child-a", "math")
	toggle(t, h, "2024-09-03", "child-a", "reading")
	toggle(t, h, "2024-09-04", "child-a", "math")
	toggle(t, h, "2024-08-30", "child-b", "math") // before the school year

	// GIVEN: No range in the query
	// WHEN: Requesting the summary
	// THEN: The school year is used
	rec := do(t, h, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.SummaryResponse](t, rec)

	assert.Equal(t, "2024-09-01", resp.Range.Start.String())
	require.Len(t, resp.Summaries, 3)
	assert.Equal(t, 2, resp.Summaries[0].TotalDays)
	assert.Equal(t, 2, resp.Summaries[0].SubjectTotals["math"])
	assert.Equal(t, 0, resp.Summaries[1].TotalDays)
	assert.Equal(t, 2, resp.Stats.TotalDays)
	assert.Equal(t, "0.7", resp.Stats.AverageString())

	rec = do(t, h, http.MethodGet, "/api/summary?start=2024-08-01&end=2024-08-31", nil)
	resp = decode[api.SummaryResponse](t, rec)
	assert.Equal(t, 1, resp.Summaries[1].TotalDays)
}

func TestListRanges(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/ranges", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ranges := decode[api.RangesResponse](t, rec).Ranges
	require.Len(t, ranges, 4)
	assert.Equal(t, "Current School Year", ranges[0].Label)
	assert.Equal(t, "2025-06-30", ranges[0].Range.End.String())
	assert.Equal(t, "2024-09-15", ranges[1].Range.Start.String())
}

// =============================================================================
// REPORTS
// =============================================================================

func TestDownloadReport(t *testing.T) {
	h := newTestRouter(t, nil)
	toggle(t, h, "2024-09-03", "child-a", "math")

	rec := do(t, h, http.MethodGet, "/api/reports/detailed?start=2024-09-01&end=2024-09-30", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="detailed-report-2024-10-15-1405.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Child A", "Child B", "Child C"}, f.GetSheetList())

	v, err := f.GetCellValue("Child A", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Exported: Oct 15, 2024 2:05 PM", v)
}

func TestDownloadReport_UnknownKind(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/reports/pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "kind", decode[api.ErrorResponse](t, rec).Field)
}

// =============================================================================
// MAINTENANCE / ERRORS
// =============================================================================

func TestReset(t *testing.T) {
	h := newTestRouter(t, nil)
	do(t, h, http.MethodPost, "/api/children", api.CreateEntityRequest{Name: "Dana"})
	toggle(t, h, "2024-09-03", "child-a", "math")

	rec := do(t, h, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/children", nil)
	assert.Len(t, decode[[]api.EntityDTO](t, rec), 3)
	rec = do(t, h, http.MethodGet, "/api/records?date=2024-09-03", nil)
	assert.Empty(t, decode[api.RecordsResponse](t, rec).Records)
}

// brokenStore fails every record query.
type brokenStore struct {
	*store.Memory
}

func (brokenStore) QueryRecords(context.Context, homeschool.RecordQuery) ([]homeschool.Record, error) {
	return nil, errors.New("disk on fire")
}

func TestStorageFailure_Returns500(t *testing.T) {
	h := newTestRouter(t, brokenStore{store.NewMemory()})

	rec := do(t, h, http.MethodGet, "/api/summary", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "storage", resp.Code)
	assert.Contains(t, resp.Details, "disk on fire")
}
