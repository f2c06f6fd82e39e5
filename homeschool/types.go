/*
Package homeschool is the persistence and aggregation core of the
home-school attendance tracker.

PURPOSE:
  Records, per day, which subjects each child completed, and folds any
  date range of those records into per-child / per-subject totals.
  Presentation (api) and export (report) consume this package; they
  never aggregate on their own.

KEY CONCEPTS IN THIS FILE (types.go):
  - Child, Subject: ordered, named entities with store-generated ids
  - Record: "child X completed subject Y on date D"
  - RecordKey: the (date, child, subject) identity of a record
  - SchoolYear: the singleton school-year window
  - ChildSummary: aggregated totals for one child over a range

INVARIANTS:
  1. At most one record per (date, child, subject). Presence means
     completed, absence means not completed.
  2. Deleting a child or subject deletes every record referencing it.
  3. Listing order is numeric by Order, ties by insertion.
  4. Exactly one SchoolYear exists once the store is initialized.
  5. Defaults are seeded only into empty collections.

SEE ALSO:
  - store.go: persistence backend contract
  - tracker.go: entity operations and cascade
  - toggle.go: the record toggle
  - summary.go: the aggregator
*/
package homeschool

import "fmt"

// =============================================================================
// ENTITIES - Children and subjects share one shape
// =============================================================================

// Collection names one of the two entity collections.
type Collection string

const (
	Children Collection = "children"
	Subjects Collection = "subjects"
)

// Singular is used in error messages.
func (c Collection) Singular() string {
	switch c {
	case Children:
		return "child"
	case Subjects:
		return "subject"
	default:
		return string(c)
	}
}

// Entity is the stored form of a child or subject.
type Entity struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Order int    `json:"order" db:"sort_order"`
}

// Child is a learner whose completions are tracked.
type Child Entity

// Subject is something a child completes on a given day.
type Subject Entity

// =============================================================================
// RECORDS - Presence-based completion facts
// =============================================================================

// RecordKey is the composite identity of a record. Backends persist the
// tuple, never the joined string, so ids containing "-" cannot collide.
type RecordKey struct {
	Date      Date
	ChildID   string
	SubjectID string
}

// String is the legacy "{date}-{childId}-{subjectId}" form. Display only.
func (k RecordKey) String() string {
	return fmt.Sprintf("%s-%s-%s", k.Date, k.ChildID, k.SubjectID)
}

// Record states that a child completed a subject on a date.
// Completed is always true for records written by the tracker; a stored
// false is treated exactly like an absent record.
type Record struct {
	Date      Date   `json:"date" db:"date"`
	ChildID   string `json:"childId" db:"child_id"`
	SubjectID string `json:"subjectId" db:"subject_id"`
	Completed bool   `json:"completed" db:"completed"`
}

func (r Record) Key() RecordKey {
	return RecordKey{Date: r.Date, ChildID: r.ChildID, SubjectID: r.SubjectID}
}

// Cell addresses one child × subject square of a day's checklist.
type Cell struct {
	ChildID   string `json:"childId"`
	SubjectID string `json:"subjectId"`
}

// =============================================================================
// SCHOOL YEAR - Singleton configuration
// =============================================================================

type SchoolYear struct {
	StartDate Date `json:"startDate"`
	EndDate   Date `json:"endDate"`
}

func (y SchoolYear) Range() DateRange {
	return DateRange{Start: y.StartDate, End: y.EndDate}
}

// Validate rejects a school year that ends before it starts.
func (y SchoolYear) Validate() error {
	if err := y.Range().Validate(); err != nil {
		verr := err.(*ValidationError)
		switch verr.Field {
		case "start":
			verr.Field = "startDate"
		case "end":
			verr.Field = "endDate"
		}
		return verr
	}
	return nil
}

// =============================================================================
// SUMMARY - Aggregator output
// =============================================================================

// ChildSummary is one row of a range summary. SubjectTotals holds an entry
// for every live subject, zero included.
type ChildSummary struct {
	ChildID       string         `json:"childId"`
	ChildName     string         `json:"childName"`
	TotalDays     int            `json:"totalDays"`
	SubjectTotals map[string]int `json:"subjectTotals"`
}
