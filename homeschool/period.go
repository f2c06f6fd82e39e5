package homeschool

import "time"

// =============================================================================
// DATE RANGE - The window every query and summary works on
// =============================================================================

// DateRange is an inclusive range of calendar days [Start, End].
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Validate rejects missing bounds and an End before Start.
func (r DateRange) Validate() error {
	if r.Start.IsZero() {
		return &ValidationError{Field: "start", Message: "start date is required"}
	}
	if r.End.IsZero() {
		return &ValidationError{Field: "end", Message: "end date is required"}
	}
	if r.End.Before(r.Start) {
		return &ValidationError{Field: "end", Message: "end date is before start date"}
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Days returns every day in the range.
func (r DateRange) Days() []Date {
	var days []Date
	for current := r.Start; current.BeforeOrEqual(r.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Len is the inclusive number of days ("30 days total").
func (r DateRange) Len() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return DaysBetween(r.Start, r.End) + 1
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// PRESETS - Ranges offered next to the report date picker
// =============================================================================

// Preset is a named, ready-made range.
type Preset struct {
	Label string    `json:"label"`
	Range DateRange `json:"range"`
}

// SchoolYearFor returns Sep 1 of year through Jun 30 of year+1.
func SchoolYearFor(year int) DateRange {
	return DateRange{
		Start: NewDate(year, time.September, 1),
		End:   NewDate(year+1, time.June, 30),
	}
}

// Presets returns the standard ranges relative to today. The configured
// school year is used when known.
func Presets(today Date, schoolYear *SchoolYear) []Preset {
	current := SchoolYearFor(today.Year())
	if schoolYear != nil {
		current = schoolYear.Range()
	}
	return []Preset{
		{Label: "Current School Year", Range: current},
		{Label: "Last 30 Days", Range: DateRange{Start: today.AddDays(-30), End: today}},
		{Label: "Last 90 Days", Range: DateRange{Start: today.AddDays(-90), End: today}},
		{Label: "This Month", Range: DateRange{
			Start: StartOfMonth(today.Year(), today.Month()),
			End:   EndOfMonth(today.Year(), today.Month()),
		}},
	}
}
