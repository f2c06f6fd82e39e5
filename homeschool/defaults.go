/*
defaults.go - First-run seeding

PURPOSE:
  A fresh store must be usable immediately: three placeholder children,
  eight subjects and a school year. EnsureDefaults fills each collection
  only when that collection is empty, so calling it again is a no-op.

WHEN IT RUNS:
  1. Once from New, after the backend is opened
  2. Once after Clear, so the store is never left empty

CONFIGURATION:
  Names can be overridden (config keys defaults.children/defaults.subjects).
  Canonical names keep their canonical ids ("child-a", "math"); other names
  get ids derived from the name.
*/
package homeschool

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Defaults holds the names seeded into empty collections.
type Defaults struct {
	Children []string
	Subjects []string
}

// DefaultDefaults returns the canonical seed set.
func DefaultDefaults() Defaults {
	return Defaults{
		Children: []string{"Child A", "Child B", "Child C"},
		Subjects: []string{"Math", "Reading", "Writing", "Science", "History", "Bible", "Elective", "PE"},
	}
}

// DefaultSchoolYear spans Sep 1 of now's year through Jun 30 of the next.
func DefaultSchoolYear(now time.Time) SchoolYear {
	r := SchoolYearFor(now.Year())
	return SchoolYear{StartDate: r.Start, EndDate: r.End}
}

// seedEntities builds the seed entities for a collection.
func (d Defaults) seedEntities(c Collection) []Entity {
	names := d.Children
	if c == Subjects {
		names = d.Subjects
	}
	entities := make([]Entity, 0, len(names))
	seen := make(map[string]int)
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id := seedID(c, name, i)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}
		entities = append(entities, Entity{ID: id, Name: name, Order: i})
	}
	return entities
}

// seedID derives a stable id from a seed name:
// "Child A" -> "child-a", "Math" -> "math", "Nature Study" -> "nature-study".
// A name with no letters or digits gets a positional id, "&" at index 2
// becomes "subject-3".
func seedID(c Collection, name string, index int) string {
	slug := slugify(name)
	if slug == "" {
		return fmt.Sprintf("%s-%d", c.Singular(), index+1)
	}
	if c == Children && !strings.HasPrefix(slug, "child-") {
		return "child-" + slug
	}
	return slug
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// =============================================================================
// ENSURE DEFAULTS
// =============================================================================

// EnsureDefaults seeds every empty collection. Collections that already
// hold data are left untouched.
func (t *Tracker) EnsureDefaults(ctx context.Context) error {
	for _, c := range []Collection{Children, Subjects} {
		n, err := t.store.CountEntities(ctx, c)
		if err != nil {
			return storageErr("seed "+string(c), err)
		}
		if n > 0 {
			continue
		}
		seeds := t.defaults.seedEntities(c)
		for _, e := range seeds {
			if err := t.store.PutEntity(ctx, c, e); err != nil {
				return storageErr("seed "+string(c), err)
			}
		}
		t.logger.Printf("seeded %d default %s", len(seeds), c)
	}

	year, err := t.store.GetSchoolYear(ctx)
	if err != nil {
		return storageErr("seed school year", err)
	}
	if year == nil {
		def := DefaultSchoolYear(t.now())
		if err := t.store.PutSchoolYear(ctx, def); err != nil {
			return storageErr("seed school year", err)
		}
		t.logger.Printf("seeded default school year %s", def.Range())
	}
	return nil
}
