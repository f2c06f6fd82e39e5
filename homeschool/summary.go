package homeschool

import "context"

// =============================================================================
// ATTENDANCE AGGREGATOR
// =============================================================================
//
// Summarize folds the records of a range into one ChildSummary per live
// child, in listing order. The result is a dense matrix: every live child
// has a count for every live subject, zeros included.
//
// TotalDays counts distinct dates with at least one completion, so three
// subjects done on the same day add 1 to TotalDays and 3 to the subject
// totals.
//
// Records for a child or subject that no longer exists are skipped, as are
// records stored with Completed=false.

// Summarize aggregates the records with start <= date <= end.
func (t *Tracker) Summarize(ctx context.Context, start, end Date) ([]ChildSummary, error) {
	records, err := t.GetRecordsByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	children, err := t.ListChildren(ctx)
	if err != nil {
		return nil, err
	}
	subjects, err := t.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate(records, children, subjects), nil
}

// SummarizeSchoolYear aggregates over the configured school year.
func (t *Tracker) SummarizeSchoolYear(ctx context.Context) ([]ChildSummary, error) {
	y, err := t.GetSchoolYear(ctx)
	if err != nil {
		return nil, err
	}
	if y == nil {
		def := DefaultSchoolYear(t.now())
		y = &def
	}
	return t.Summarize(ctx, y.StartDate, y.EndDate)
}

// aggregate is the pure part of Summarize.
func aggregate(records []Record, children []Child, subjects []Subject) []ChildSummary {
	type tally struct {
		summary *ChildSummary
		days    map[string]struct{}
	}

	out := make([]ChildSummary, len(children))
	byChild := make(map[string]*tally, len(children))
	for i, c := range children {
		totals := make(map[string]int, len(subjects))
		for _, s := range subjects {
			totals[s.ID] = 0
		}
		out[i] = ChildSummary{ChildID: c.ID, ChildName: c.Name, SubjectTotals: totals}
		byChild[c.ID] = &tally{summary: &out[i], days: make(map[string]struct{})}
	}

	for _, r := range records {
		if !r.Completed {
			continue
		}
		tl, ok := byChild[r.ChildID]
		if !ok {
			continue
		}
		if _, live := tl.summary.SubjectTotals[r.SubjectID]; !live {
			continue
		}
		tl.summary.SubjectTotals[r.SubjectID]++
		tl.days[r.Date.String()] = struct{}{}
	}

	for _, tl := range byChild {
		tl.summary.TotalDays = len(tl.days)
	}
	return out
}
