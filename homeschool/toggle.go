package homeschool

import "context"

// =============================================================================
// RECORD TOGGLE - The only way a record is created or removed
// =============================================================================

// ToggleRecord flips the completion of (date, childID, subjectID) and
// returns the new state: true when a record was created, false when one
// was removed.
//
// Both ids must name live entities, otherwise NotFoundError. A failure
// while checking for the existing record aborts the toggle with a
// StorageError; it never falls through to creating a record.
func (t *Tracker) ToggleRecord(ctx context.Context, date Date, childID, subjectID string) (bool, error) {
	if date.IsZero() {
		return false, &ValidationError{Field: "date", Message: "date is required"}
	}
	if err := t.checkRefs(ctx, childID, subjectID); err != nil {
		return false, err
	}

	key := RecordKey{Date: date, ChildID: childID, SubjectID: subjectID}
	exists, err := t.store.HasRecord(ctx, key)
	if err != nil {
		return false, storageErr("toggle record", err)
	}
	if exists {
		if _, err := t.store.DeleteRecord(ctx, key); err != nil {
			return false, storageErr("toggle record", err)
		}
		return false, nil
	}

	r := Record{Date: date, ChildID: childID, SubjectID: subjectID, Completed: true}
	if err := t.store.PutRecord(ctx, r); err != nil {
		return false, storageErr("toggle record", err)
	}
	return true, nil
}

// IsRecordCompleted reports whether a completed record exists for the key.
func (t *Tracker) IsRecordCompleted(ctx context.Context, date Date, childID, subjectID string) (bool, error) {
	exists, err := t.store.HasRecord(ctx, RecordKey{Date: date, ChildID: childID, SubjectID: subjectID})
	return exists, storageErr("check record", err)
}

// DayCompletions returns the checked cells of one day's checklist.
// Cells missing from the map are not completed.
func (t *Tracker) DayCompletions(ctx context.Context, date Date) (map[Cell]bool, error) {
	records, err := t.GetRecordsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	cells := make(map[Cell]bool, len(records))
	for _, r := range records {
		if r.Completed {
			cells[Cell{ChildID: r.ChildID, SubjectID: r.SubjectID}] = true
		}
	}
	return cells, nil
}

func (t *Tracker) checkRefs(ctx context.Context, childID, subjectID string) error {
	ok, err := t.exists(ctx, Children, childID)
	if err != nil {
		return storageErr("toggle record", err)
	}
	if !ok {
		return &NotFoundError{Kind: Children, ID: childID}
	}
	ok, err = t.exists(ctx, Subjects, subjectID)
	if err != nil {
		return storageErr("toggle record", err)
	}
	if !ok {
		return &NotFoundError{Kind: Subjects, ID: subjectID}
	}
	return nil
}
