/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. The domain types in
  package homeschool already carry json tags; these wrap them where the
  HTTP contract differs (request bodies, envelopes, computed stats).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags. Handlers call
  Handler.decode, which rejects unknown JSON and failed tags with 400.
  Rules the domain owns (end before start, unknown ids) are still
  checked by homeschool.Tracker.

SEE ALSO:
  - handlers.go: Uses these types
  - homeschool/types.go: Domain types
*/
package api

import (
	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/report"
)

// =============================================================================
// ENTITIES
// =============================================================================

// EntityDTO represents a child or subject in API responses.
type EntityDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

func toEntityDTO(e homeschool.Entity) EntityDTO {
	return EntityDTO{ID: e.ID, Name: e.Name, Order: e.Order}
}

// CreateEntityRequest adds a child or subject at the end of the list.
type CreateEntityRequest struct {
	Name string `json:"name" validate:"required"`
}

// UpdateEntityRequest renames a child or subject. Order is kept when omitted.
type UpdateEntityRequest struct {
	Name  string `json:"name" validate:"required"`
	Order *int   `json:"order,omitempty" validate:"omitempty,gte=0"`
}

// CreatedResponse returns the generated id.
type CreatedResponse struct {
	ID string `json:"id"`
}

// =============================================================================
// RECORDS
// =============================================================================

// ToggleRequest flips one cell of a day's checklist.
type ToggleRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	ChildID   string `json:"childId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
}

// ToggleResponse is the state after the toggle.
type ToggleResponse struct {
	Completed bool `json:"completed"`
}

// RecordsResponse wraps a record listing.
type RecordsResponse struct {
	Records []homeschool.Record `json:"records"`
}

// DayDTO is the checklist of one date: the completed cells, plus the
// entities needed to draw the grid.
type DayDTO struct {
	Date      string            `json:"date"`
	Children  []EntityDTO       `json:"children"`
	Subjects  []EntityDTO       `json:"subjects"`
	Completed []homeschool.Cell `json:"completed"`
}

// =============================================================================
// SCHOOL YEAR
// =============================================================================

// SchoolYearRequest replaces the school year.
type SchoolYearRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// =============================================================================
// SUMMARY
// =============================================================================

// SummaryResponse is the aggregator output for a range plus its roll-ups.
type SummaryResponse struct {
	Range     homeschool.DateRange      `json:"range"`
	Summaries []homeschool.ChildSummary `json:"summaries"`
	Stats     report.Stats              `json:"stats"`
}

// RangesResponse lists the preset ranges for the report picker.
type RangesResponse struct {
	Ranges []homeschool.Preset `json:"ranges"`
}

// ErrorResponse is the standard error response. Code is one of
// "validation", "not_found" or "storage".
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}
