/*
Package report lays out computed attendance summaries as documents.

PURPOSE:
  The export side of the tracker. It takes the []ChildSummary produced by
  homeschool.Tracker.Summarize plus the subject list and arranges them
  into tables. It never reads records and never aggregates; every number
  it shows comes from the summaries it is given.

REPORT KINDS:
  attendance: per-child total days, then child x subject counts
  subjects:   subject rows, one column per child plus a Total column,
              followed by total school days and the average per child
  detailed:   one sheet per child with its day total and subject table

RENDERING:
  Build produces a format-neutral Document. WriteXLSX (xlsx.go) renders
  it as a workbook.

SEE ALSO:
  - homeschool/summary.go: the aggregator
  - api/reports.go: HTTP download endpoint
*/
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/homeschool-tracker/homeschool"
)

// =============================================================================
// KINDS
// =============================================================================

// Kind selects one of the report layouts.
type Kind string

const (
	KindAttendance Kind = "attendance"
	KindSubjects   Kind = "subjects"
	KindDetailed   Kind = "detailed"
)

// Kinds lists every report kind.
var Kinds = []Kind{KindAttendance, KindSubjects, KindDetailed}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", &homeschool.ValidationError{
		Field:   "kind",
		Message: fmt.Sprintf("unknown report %q (want attendance, subjects or detailed)", s),
	}
}

// Title is the heading printed at the top of every sheet.
func (k Kind) Title() string {
	switch k {
	case KindAttendance:
		return "HomeSchool Tracker - Attendance Summary"
	case KindSubjects:
		return "HomeSchool Tracker - Subject Summary"
	case KindDetailed:
		return "HomeSchool Tracker - Detailed Report"
	default:
		return "HomeSchool Tracker"
	}
}

func (k Kind) filePrefix() string {
	switch k {
	case KindAttendance:
		return "attendance-summary"
	case KindSubjects:
		return "subject-summary"
	case KindDetailed:
		return "detailed-report"
	default:
		return string(k)
	}
}

// FileName is "<report>-YYYY-MM-DD-HHmm.xlsx", stamped with now.
func FileName(k Kind, now time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", k.filePrefix(), now.Format("2006-01-02-1504"))
}

// =============================================================================
// DOCUMENT MODEL
// =============================================================================

// Document is a laid-out report, independent of the output format.
type Document struct {
	Kind   Kind
	Title  string
	Header []string // date range and export timestamp lines
	Sheets []Sheet
}

// Sheet is one page of the report: a worksheet in XLSX.
type Sheet struct {
	Name   string
	Blocks []Block
}

// Block is an optional heading, some text lines, then an optional table.
type Block struct {
	Heading string
	Lines   []string
	Table   *Table
}

// Table cells are strings or ints.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Options carries what the layout needs besides the numbers.
type Options struct {
	Range      homeschool.DateRange
	ExportedAt time.Time
}

const (
	headerDateLayout     = "Jan 02, 2006"
	headerExportedLayout = "Jan 02, 2006 3:04 PM"
)

// =============================================================================
// STATISTICS
// =============================================================================

// Stats are the roll-ups printed under the subject summary.
type Stats struct {
	TotalChildren int             `json:"totalChildren"`
	TotalDays     int             `json:"totalDays"`
	AverageDays   decimal.Decimal `json:"averageDaysPerChild"`
}

// Statistics sums TotalDays across children. The average is zero when
// there are no children.
func Statistics(sums []homeschool.ChildSummary) Stats {
	s := Stats{TotalChildren: len(sums), AverageDays: decimal.Zero}
	for _, c := range sums {
		s.TotalDays += c.TotalDays
	}
	if s.TotalChildren > 0 {
		s.AverageDays = decimal.NewFromInt(int64(s.TotalDays)).
			Div(decimal.NewFromInt(int64(s.TotalChildren)))
	}
	return s
}

// AverageString renders the average with one decimal, e.g. "2.5".
func (s Stats) AverageString() string {
	return s.AverageDays.StringFixed(1)
}

// =============================================================================
// BUILD
// =============================================================================

// Build lays out a report of the given kind.
func Build(k Kind, sums []homeschool.ChildSummary, subjects []homeschool.Subject, opts Options) (*Document, error) {
	doc := &Document{
		Kind:  k,
		Title: k.Title(),
		Header: []string{
			fmt.Sprintf("Date Range: %s - %s",
				opts.Range.Start.Format(headerDateLayout), opts.Range.End.Format(headerDateLayout)),
			"Exported: " + opts.ExportedAt.Format(headerExportedLayout),
		},
	}

	switch k {
	case KindAttendance:
		doc.Sheets = []Sheet{attendanceSheet(sums, subjects)}
	case KindSubjects:
		doc.Sheets = []Sheet{subjectSheet(sums, subjects)}
	case KindDetailed:
		doc.Sheets = detailedSheets(sums, subjects)
	default:
		_, err := ParseKind(string(k))
		return nil, err
	}
	return doc, nil
}

func attendanceSheet(sums []homeschool.ChildSummary, subjects []homeschool.Subject) Sheet {
	totals := &Table{Columns: []string{"Child", "Total Attendance Days"}}
	breakdown := &Table{Columns: []string{"Child", "Subject", "Days Completed"}}
	for _, c := range sums {
		totals.Rows = append(totals.Rows, []any{c.ChildName, c.TotalDays})
		for _, s := range subjects {
			breakdown.Rows = append(breakdown.Rows, []any{c.ChildName, s.Name, c.SubjectTotals[s.ID]})
		}
	}
	return Sheet{
		Name: "Attendance Summary",
		Blocks: []Block{
			{Table: totals},
			{Heading: "Subject Breakdown", Table: breakdown},
		},
	}
}

func subjectSheet(sums []homeschool.ChildSummary, subjects []homeschool.Subject) Sheet {
	columns := []string{"Subject"}
	for _, c := range sums {
		columns = append(columns, c.ChildName)
	}
	columns = append(columns, "Total")

	table := &Table{Columns: columns}
	for _, s := range subjects {
		row := []any{s.Name}
		total := 0
		for _, c := range sums {
			n := c.SubjectTotals[s.ID]
			total += n
			row = append(row, n)
		}
		table.Rows = append(table.Rows, append(row, total))
	}

	stats := Statistics(sums)
	return Sheet{
		Name: "Subject Summary",
		Blocks: []Block{
			{Table: table},
			{Lines: []string{
				fmt.Sprintf("Total School Days: %d", stats.TotalDays),
				"Average Days per Child: " + stats.AverageString(),
			}},
		},
	}
}

// detailedSheets gives each child its own sheet; with no children there
// is a single empty sheet carrying only the header.
func detailedSheets(sums []homeschool.ChildSummary, subjects []homeschool.Subject) []Sheet {
	if len(sums) == 0 {
		return []Sheet{{Name: "Detailed Report"}}
	}
	sheets := make([]Sheet, 0, len(sums))
	for _, c := range sums {
		table := &Table{Columns: []string{"Subject", "Days Completed"}}
		for _, s := range subjects {
			table.Rows = append(table.Rows, []any{s.Name, c.SubjectTotals[s.ID]})
		}
		sheets = append(sheets, Sheet{
			Name: c.ChildName,
			Blocks: []Block{{
				Heading: c.ChildName + " - Summary",
				Lines:   []string{fmt.Sprintf("Total Attendance Days: %d", c.TotalDays)},
				Table:   table,
			}},
		})
	}
	return sheets
}
