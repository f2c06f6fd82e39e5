//go:build js && wasm

/*
main.go - Browser entry point

PURPOSE:
  Runs the tracker inside the page. Data lives in IndexedDB through
  hackpadfs, as one JSON document managed by store/snapshot.

JS API (window.HomeSchool):
  Every function returns a Promise resolving to a JSON string, or
  rejecting with an Error whose message is {"error": ..., "code": ...}.

    init([dbName])                     open IndexedDB and seed defaults
    listChildren() / listSubjects()
    addChild(name) / addSubject(name)
    updateChild(id, name, order) / updateSubject(id, name, order)
    deleteChild(id) / deleteSubject(id)
    toggle(date, childId, subjectId)   -> {"completed": bool}
    day(date)                          -> [{childId, subjectId}, ...]
    records(start, end)
    getSchoolYear() / setSchoolYear(start, end)
    summary([start, end])              -> {range, summaries, stats}
    report(kind, [start, end])         -> {fileName, bytes: Uint8Array}
    clear()

  IndexedDB calls block on browser events, so each call runs in its own
  goroutine and never on the JS callback stack.
*/
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"syscall/js"
	"time"

	"github.com/hack-pad/hackpadfs/indexeddb"

	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/report"
	"github.com/warp/homeschool-tracker/store/snapshot"
)

const Version = "0.1.0"

const defaultDBName = "homeschool-tracker"

var tracker *homeschool.Tracker

func main() {
	println("[HomeSchool] WASM Ready v" + Version)

	js.Global().Set("HomeSchool", js.ValueOf(map[string]interface{}{
		"version":       js.FuncOf(func(js.Value, []js.Value) interface{} { return Version }),
		"init":          async(initialize),
		"listChildren":  async(listChildren),
		"listSubjects":  async(listSubjects),
		"addChild":      async(addEntity(homeschool.Children)),
		"addSubject":    async(addEntity(homeschool.Subjects)),
		"updateChild":   async(updateEntity(homeschool.Children)),
		"updateSubject": async(updateEntity(homeschool.Subjects)),
		"deleteChild":   async(deleteEntity(homeschool.Children)),
		"deleteSubject": async(deleteEntity(homeschool.Subjects)),
		"toggle":        async(toggle),
		"day":           async(day),
		"records":       async(records),
		"getSchoolYear": async(getSchoolYear),
		"setSchoolYear": async(setSchoolYear),
		"summary":       async(summary),
		"report":        async(exportReport),
		"clear":         async(clearAll),
	}))

	select {}
}

// =============================================================================
// PROMISE BRIDGE
// =============================================================================

type handler func(ctx context.Context, args []js.Value) (interface{}, error)

var errNotInitialized = errors.New("tracker not initialized; call init() first")

// async wraps h as a JS function returning a Promise. Results that are not
// already js.Values are sent as JSON strings.
func async(h handler) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		executor := js.FuncOf(func(_ js.Value, p []js.Value) interface{} {
			resolve, reject := p[0], p[1]
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				v, err := h(ctx, args)
				if err != nil {
					reject.Invoke(js.Global().Get("Error").New(errorJSON(err)))
					return
				}
				if jv, ok := v.(js.Value); ok {
					resolve.Invoke(jv)
					return
				}
				b, err := json.Marshal(v)
				if err != nil {
					reject.Invoke(js.Global().Get("Error").New(errorJSON(err)))
					return
				}
				resolve.Invoke(string(b))
			}()
			return nil
		})
		defer executor.Release()
		return js.Global().Get("Promise").New(executor)
	})
}

func errorJSON(err error) string {
	code := "storage"
	switch {
	case errors.Is(err, homeschool.ErrValidation):
		code = "validation"
	case errors.Is(err, homeschool.ErrNotFound):
		code = "not_found"
	}
	b, _ := json.Marshal(map[string]string{"error": err.Error(), "code": code})
	return string(b)
}

func ready() error {
	if tracker == nil {
		return errNotInitialized
	}
	return nil
}

func argString(args []js.Value, i int) string {
	if i >= len(args) || args[i].IsUndefined() || args[i].IsNull() {
		return ""
	}
	return args[i].String()
}

func argDate(args []js.Value, i int, field string) (homeschool.Date, error) {
	d, err := homeschool.ParseDate(argString(args, i))
	if err != nil {
		var verr *homeschool.ValidationError
		if errors.As(err, &verr) {
			verr.Field = field
		}
		return homeschool.Date{}, err
	}
	return d, nil
}

// argRange reads an optional (start, end) pair; both absent means the
// school year.
func argRange(ctx context.Context, args []js.Value, i int) (homeschool.DateRange, error) {
	if argString(args, i) == "" && argString(args, i+1) == "" {
		y, err := tracker.GetSchoolYear(ctx)
		if err != nil {
			return homeschool.DateRange{}, err
		}
		if y == nil {
			def := homeschool.DefaultSchoolYear(time.Now())
			y = &def
		}
		return y.Range(), nil
	}
	start, err := argDate(args, i, "start")
	if err != nil {
		return homeschool.DateRange{}, err
	}
	end, err := argDate(args, i+1, "end")
	if err != nil {
		return homeschool.DateRange{}, err
	}
	r := homeschool.DateRange{Start: start, End: end}
	return r, r.Validate()
}

// =============================================================================
// EXPORTS
// =============================================================================

// initialize opens the IndexedDB filesystem. Args: [dbName]
func initialize(ctx context.Context, args []js.Value) (interface{}, error) {
	name := argString(args, 0)
	if name == "" {
		name = defaultDBName
	}
	fs, err := indexeddb.NewFS(ctx, name, indexeddb.Options{})
	if err != nil {
		return nil, err
	}
	s, err := snapshot.New(fs, snapshot.DefaultPath)
	if err != nil {
		return nil, err
	}
	t, err := homeschool.New(ctx, s)
	if err != nil {
		return nil, err
	}
	tracker = t
	return map[string]string{"success": "tracker initialized", "db": name}, nil
}

func listChildren(ctx context.Context, _ []js.Value) (interface{}, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	return tracker.ListChildren(ctx)
}

func listSubjects(ctx context.Context, _ []js.Value) (interface{}, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	return tracker.ListSubjects(ctx)
}

// addEntity: [name]
func addEntity(c homeschool.Collection) handler {
	return func(ctx context.Context, args []js.Value) (interface{}, error) {
		if err := ready(); err != nil {
			return nil, err
		}
		var id string
		var err error
		if c == homeschool.Children {
			id, err = tracker.AddChild(ctx, argString(args, 0))
		} else {
			id, err = tracker.AddSubject(ctx, argString(args, 0))
		}
		if err != nil {
			return nil, err
		}
		return map[string]string{"id": id}, nil
	}
}

// updateEntity: [id, name, order?]; a missing order keeps the stored one
func updateEntity(c homeschool.Collection) handler {
	return func(ctx context.Context, args []js.Value) (interface{}, error) {
		if err := ready(); err != nil {
			return nil, err
		}
		id, name := argString(args, 0), argString(args, 1)
		if len(args) < 3 || args[2].Type() != js.TypeNumber {
			if c == homeschool.Children {
				child, err := tracker.RenameChild(ctx, id, name)
				return homeschool.Entity(child), err
			}
			subject, err := tracker.RenameSubject(ctx, id, name)
			return homeschool.Entity(subject), err
		}
		e := homeschool.Entity{ID: id, Name: name, Order: args[2].Int()}
		var err error
		if c == homeschool.Children {
			err = tracker.UpdateChild(ctx, homeschool.Child(e))
		} else {
			err = tracker.UpdateSubject(ctx, homeschool.Subject(e))
		}
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// deleteEntity: [id]
func deleteEntity(c homeschool.Collection) handler {
	return func(ctx context.Context, args []js.Value) (interface{}, error) {
		if err := ready(); err != nil {
			return nil, err
		}
		id := argString(args, 0)
		var err error
		if c == homeschool.Children {
			err = tracker.DeleteChild(ctx, id)
		} else {
			err = tracker.DeleteSubject(ctx, id)
		}
		if err != nil {
			return nil, err
		}
		return map[string]string{"deleted": id}, nil
	}
}

// toggle: [date, childId, subjectId]
func toggle(ctx context.Context, args []js.Value) (interface{}, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	date, err := argDate(args, 0, "date")
	if err != nil {
		return nil, err
	}
	completed, err := tracker.ToggleRecord(ctx, date, argString(args, 1), argString(args, 2))
	if err != nil {
		return nil, err
	}
	return map[string]bool{"completed": completed}, nil
}

// day: [date]
func day(ctx context.Context, args []js.Value) (interface{}, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	date, err := argDate(args, 0, "date")
	if err != nil {
		return nil, err
	}
	cells, err := tracker.DayCompletions(ctx, date)
	if err != nil {
		return nil, err
	}
	out := make([]homeschool.Cell, 0, len(cells))
	for c := range cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChildID != out[j].ChildID {
			return out[i].ChildID < out[j].ChildID
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out, nil
}

// records: [start, end]
func records(ctx context.Context, args []js.Value) (interface{}, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	start, err := argDate(args, 0, "start")
	if err != nil {
		return nil, err
	}
	end, err := argDate(args, 1, "end")
	if err != nil {
		return nil, err
	}
	return tracker.GetRecordsByDateRange(ctx, start, end)
}

func getSchoolYear(ctx context.Context, _ []js.Value) (interface{}, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	return tracker.GetSchoolYear(ctx)
}

// setSchoolYear: [start, end]
func setSchoolYear(ctx context.Context, args []js.Value) (interface{}, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	start, err := argDate(args, 0, "startDate")
	if err != nil {
		return nil, err
	}
	end, err := argDate(args, 1, "endDate")
	if err != nil {
		return nil, err
	}
	y := homeschool.SchoolYear{StartDate: start, EndDate: end}
	if err := tracker.UpdateSchoolYear(ctx, y); err != nil {
		return nil, err
	}
	return y, nil
}

// summary: [start, end]
func summary(ctx context.Context, args []js.Value) (interface{}, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	rng, err := argRange(ctx, args, 0)
	if err != nil {
		return nil, err
	}
	sums, err := tracker.Summarize(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"range":     rng,
		"summaries": sums,
		"stats":     report.Statistics(sums),
	}, nil
}

// exportReport: [kind, start, end]. Resolves to a JS object carrying the
// workbook as a Uint8Array.
func exportReport(ctx context.Context, args []js.Value) (interface{}, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	kind, err := report.ParseKind(argString(args, 0))
	if err != nil {
		return nil, err
	}
	rng, err := argRange(ctx, args, 1)
	if err != nil {
		return nil, err
	}
	sums, err := tracker.Summarize(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	subjects, err := tracker.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	doc, err := report.Build(kind, sums, subjects, report.Options{Range: rng, ExportedAt: now})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, doc); err != nil {
		return nil, err
	}

	arr := js.Global().Get("Uint8Array").New(buf.Len())
	js.CopyBytesToJS(arr, buf.Bytes())
	return js.ValueOf(map[string]interface{}{
		"fileName": report.FileName(kind, now),
		"bytes":    arr,
	}), nil
}

func clearAll(ctx context.Context, _ []js.Value) (interface{}, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	if err := tracker.Clear(ctx); err != nil {
		return nil, err
	}
	return map[string]string{"success": "cleared"}, nil
}
