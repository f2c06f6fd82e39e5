/*
handlers.go - HTTP API handlers for the attendance tracker

PURPOSE:
  Exposes homeschool.Tracker via a REST API. Handles HTTP request and
  response, JSON serialization and request validation, then delegates to
  the tracker. No handler touches a Store directly.

ENDPOINTS:
  Children / Subjects:
    GET    /api/children               List in display order
    POST   /api/children               Add (appended at the end)
    PUT    /api/children/{id}          Rename / reorder
    DELETE /api/children/{id}          Delete, cascading to its records
    (same four for /api/subjects)

  Records:
    GET    /api/records?date=          One day (optionally &childId=)
    GET    /api/records?start=&end=    Inclusive range
    POST   /api/records/toggle         Flip one cell, returns new state
    GET    /api/days/{date}            Checklist grid for one date

  School year:
    GET    /api/school-year
    PUT    /api/school-year

  Summary and export:
    GET    /api/summary?start=&end=    Aggregated totals (default: school year)
    GET    /api/ranges                 Preset ranges for the picker
    GET    /api/reports/{kind}         XLSX download (reports.go)

  Maintenance:
    POST   /api/reset                  Clear everything and reseed defaults

ERROR HANDLING:
  Errors are returned as ErrorResponse with the status taken from the
  tracker's error kind:
  - 400: homeschool.ErrValidation, malformed body or query
  - 404: homeschool.ErrNotFound
  - 500: homeschool.ErrStorage and anything unexpected

SECURITY NOTE:
  No authentication. The tracker is a single-household tool.

SEE ALSO:
  - dto.go: Request/response data structures
  - reports.go: Report download
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Tracker *homeschool.Tracker
	Logger  *log.Logger

	// Now stamps report downloads.
	Now func() time.Time

	validate *validator.Validate
}

// NewHandler creates a new handler over the given tracker.
func NewHandler(t *homeschool.Tracker, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		Tracker:  t,
		Logger:   logger,
		Now:      time.Now,
		validate: v,
	}
}

// =============================================================================
// CHILD HANDLERS
// =============================================================================

// ListChildren returns all children in display order.
// GET /api/children
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.Tracker.ListChildren(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list children", err)
		return
	}
	dtos := make([]EntityDTO, len(children))
	for i, c := range children {
		dtos[i] = toEntityDTO(homeschool.Entity(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateChild adds a child.
// POST /api/children
func (h *Handler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req CreateEntityRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.Tracker.AddChild(r.Context(), req.Name)
	if err != nil {
		h.writeDomainError(w, "Failed to add child", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// UpdateChild renames or reorders a child.
// PUT /api/children/{id}
func (h *Handler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	h.updateEntity(w, r, homeschool.Children)
}

// DeleteChild removes a child and every record that references it.
// DELETE /api/children/{id}
func (h *Handler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.DeleteChild(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete child", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SUBJECT HANDLERS
// =============================================================================

// ListSubjects returns all subjects in display order.
// GET /api/subjects
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.Tracker.ListSubjects(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list subjects", err)
		return
	}
	dtos := make([]EntityDTO, len(subjects))
	for i, s := range subjects {
		dtos[i] = toEntityDTO(homeschool.Entity(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSubject adds a subject.
// POST /api/subjects
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req CreateEntityRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.Tracker.AddSubject(r.Context(), req.Name)
	if err != nil {
		h.writeDomainError(w, "Failed to add subject", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// UpdateSubject renames or reorders a subject.
// PUT /api/subjects/{id}
func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	h.updateEntity(w, r, homeschool.Subjects)
}

// DeleteSubject removes a subject and every record that references it.
// DELETE /api/subjects/{id}
func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.DeleteSubject(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete subject", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateEntity keeps the stored order when the request omits one.
func (h *Handler) updateEntity(w http.ResponseWriter, r *http.Request, c homeschool.Collection) {
	var req UpdateEntityRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var (
		e   homeschool.Entity
		err error
	)
	switch {
	case req.Order == nil && c == homeschool.Children:
		var child homeschool.Child
		child, err = h.Tracker.RenameChild(ctx, id, req.Name)
		e = homeschool.Entity(child)
	case req.Order == nil:
		var subject homeschool.Subject
		subject, err = h.Tracker.RenameSubject(ctx, id, req.Name)
		e = homeschool.Entity(subject)
	case c == homeschool.Children:
		e = homeschool.Entity{ID: id, Name: req.Name, Order: *req.Order}
		err = h.Tracker.UpdateChild(ctx, homeschool.Child(e))
	default:
		e = homeschool.Entity{ID: id, Name: req.Name, Order: *req.Order}
		err = h.Tracker.UpdateSubject(ctx, homeschool.Subject(e))
	}
	if err != nil {
		h.writeDomainError(w, "Failed to update "+c.Singular(), err)
		return
	}
	writeJSON(w, http.StatusOK, toEntityDTO(e))
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// ListRecords returns the records of one day or of an inclusive range.
// GET /api/records?date=2024-09-03[&childId=]
// GET /api/records?start=2024-09-01&end=2024-09-30
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		records []homeschool.Record
		err     error
	)
	switch {
	case q.Get("date") != "":
		date, perr := parseDateParam("date", q.Get("date"))
		if perr != nil {
			h.writeDomainError(w, "Invalid date", perr)
			return
		}
		if childID := q.Get("childId"); childID != "" {
			records, err = h.Tracker.GetRecordsByDateChild(ctx, date, childID)
		} else {
			records, err = h.Tracker.GetRecordsByDate(ctx, date)
		}
	case q.Get("start") != "" || q.Get("end") != "":
		rng, perr := parseRangeParams(q.Get("start"), q.Get("end"))
		if perr != nil {
			h.writeDomainError(w, "Invalid date range", perr)
			return
		}
		records, err = h.Tracker.GetRecordsByDateRange(ctx, rng.Start, rng.End)
	default:
		h.writeDomainError(w, "Missing query", &homeschool.ValidationError{
			Field:   "date",
			Message: "pass either date or start and end",
		})
		return
	}
	if err != nil {
		h.writeDomainError(w, "Failed to get records", err)
		return
	}
	if records == nil {
		records = []homeschool.Record{}
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Records: records})
}

// ToggleRecord flips one child x subject cell of a date.
// POST /api/records/toggle
func (h *Handler) ToggleRecord(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := parseDateParam("date", req.Date)
	if err != nil {
		h.writeDomainError(w, "Invalid date", err)
		return
	}
	completed, err := h.Tracker.ToggleRecord(r.Context(), date, req.ChildID, req.SubjectID)
	if err != nil {
		h.writeDomainError(w, "Failed to toggle record", err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{Completed: completed})
}

// GetDay returns the checklist of one date. Completed cells are listed in
// child order, then subject order.
// GET /api/days/{date}
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date, err := parseDateParam("date", chi.URLParam(r, "date"))
	if err != nil {
		h.writeDomainError(w, "Invalid date", err)
		return
	}

	cells, err := h.Tracker.DayCompletions(ctx, date)
	if err != nil {
		h.writeDomainError(w, "Failed to load day", err)
		return
	}
	children, err := h.Tracker.ListChildren(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to load day", err)
		return
	}
	subjects, err := h.Tracker.ListSubjects(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to load day", err)
		return
	}

	day := DayDTO{
		Date:      date.String(),
		Children:  make([]EntityDTO, len(children)),
		Subjects:  make([]EntityDTO, len(subjects)),
		Completed: []homeschool.Cell{},
	}
	for i, s := range subjects {
		day.Subjects[i] = toEntityDTO(homeschool.Entity(s))
	}
	for i, c := range children {
		day.Children[i] = toEntityDTO(homeschool.Entity(c))
		for _, s := range subjects {
			cell := homeschool.Cell{ChildID: c.ID, SubjectID: s.ID}
			if cells[cell] {
				day.Completed = append(day.Completed, cell)
			}
		}
	}
	writeJSON(w, http.StatusOK, day)
}

// =============================================================================
// SCHOOL YEAR HANDLERS
// =============================================================================

// GetSchoolYear returns the configured school year.
// GET /api/school-year
func (h *Handler) GetSchoolYear(w http.ResponseWriter, r *http.Request) {
	y, err := h.Tracker.GetSchoolYear(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to get school year", err)
		return
	}
	if y == nil {
		writeError(w, http.StatusNotFound, "School year not set", nil)
		return
	}
	writeJSON(w, http.StatusOK, y)
}

// UpdateSchoolYear replaces the school year.
// PUT /api/school-year
func (h *Handler) UpdateSchoolYear(w http.ResponseWriter, r *http.Request) {
	var req SchoolYearRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, err := parseDateParam("startDate", req.StartDate)
	if err != nil {
		h.writeDomainError(w, "Invalid school year", err)
		return
	}
	end, err := parseDateParam("endDate", req.EndDate)
	if err != nil {
		h.writeDomainError(w, "Invalid school year", err)
		return
	}

	y := homeschool.SchoolYear{StartDate: start, EndDate: end}
	if err := h.Tracker.UpdateSchoolYear(r.Context(), y); err != nil {
		h.writeDomainError(w, "Failed to update school year", err)
		return
	}
	writeJSON(w, http.StatusOK, y)
}

// =============================================================================
// SUMMARY HANDLERS
// =============================================================================

// GetSummary aggregates a range. Without start and end it covers the
// school year.
// GET /api/summary?start=&end=
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := h.resolveRange(r)
	if err != nil {
		h.writeDomainError(w, "Invalid date range", err)
		return
	}
	sums, err := h.Tracker.Summarize(r.Context(), rng.Start, rng.End)
	if err != nil {
		h.writeDomainError(w, "Failed to summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Range:     rng,
		Summaries: sums,
		Stats:     report.Statistics(sums),
	})
}

// ListRanges returns the preset ranges relative to today.
// GET /api/ranges
func (h *Handler) ListRanges(w http.ResponseWriter, r *http.Request) {
	y, err := h.Tracker.GetSchoolYear(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list ranges", err)
		return
	}
	writeJSON(w, http.StatusOK, RangesResponse{Ranges: homeschool.Presets(h.Tracker.Today(), y)})
}

// resolveRange reads start/end from the query, falling back to the
// configured school year when both are absent.
func (h *Handler) resolveRange(r *http.Request) (homeschool.DateRange, error) {
	q := r.URL.Query()
	if q.Get("start") != "" || q.Get("end") != "" {
		return parseRangeParams(q.Get("start"), q.Get("end"))
	}
	y, err := h.Tracker.GetSchoolYear(r.Context())
	if err != nil {
		return homeschool.DateRange{}, err
	}
	if y == nil {
		def := homeschool.DefaultSchoolYear(h.Tracker.Today().Time)
		y = &def
	}
	return y.Range(), nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset wipes all data and reseeds the defaults.
// POST /api/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.Clear(r.Context()); err != nil {
		h.writeDomainError(w, "Failed to reset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. On failure it writes the 400
// response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) || len(ve) == 0 {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return false
		}
		details := make(map[string]string, len(ve))
		for _, fe := range ve {
			details[fe.Field()] = validationMessage(fe)
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "validation",
			Field:   ve[0].Field(),
			Details: details,
		})
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}

func parseDateParam(field, s string) (homeschool.Date, error) {
	d, err := homeschool.ParseDate(s)
	if err != nil {
		var verr *homeschool.ValidationError
		if errors.As(err, &verr) {
			verr.Field = field
		}
		return homeschool.Date{}, err
	}
	return d, nil
}

// parseRangeParams leaves range rules to DateRange.Validate; a missing
// bound comes back as a zero date and is rejected there.
func parseRangeParams(start, end string) (homeschool.DateRange, error) {
	var rng homeschool.DateRange
	var err error
	if start != "" {
		if rng.Start, err = parseDateParam("start", start); err != nil {
			return rng, err
		}
	}
	if end != "" {
		if rng.End, err = parseDateParam("end", end); err != nil {
			return rng, err
		}
	}
	return rng, rng.Validate()
}

// writeDomainError maps the tracker's error kinds to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var verr *homeschool.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   message,
			Code:    "validation",
			Field:   verr.Field,
			Details: err.Error(),
		})
	case errors.Is(err, homeschool.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: message, Code: "not_found", Details: err.Error()})
	default:
		h.Logger.Printf("%s: %v", message, err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: message, Code: "storage", Details: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
