// Package diff computes the change events between two snapshots of a user's
// records.
package diff

import "github.com/edap/edap-server/internal/model"

// Diff returns the events found in next that were not present in prev.
//
// A change in the number of classes yields a single class event and nothing
// else: only the first class is populated, so the rest of the snapshot cannot
// be aligned once the roster changed. Otherwise the first class is compared in
// this order: tests by set membership, the number of absence days, then each
// pair of subjects at the same position for grades and notes. Diff(s, s) is
// always empty.
func Diff(prev, next *model.ProfileSnapshot) []model.ChangeEvent {
	if len(prev.Classes) != len(next.Classes) {
		return []model.ChangeEvent{model.ClassChanged()}
	}
	if len(next.Classes) == 0 {
		return nil
	}

	const classID = 0
	old, cur := &prev.Classes[classID], &next.Classes[classID]

	var events []model.ChangeEvent
	events = appendTests(events, classID, old.Tests, cur.Tests)

	if delta := len(cur.Absences.Full) - len(old.Absences.Full); delta != 0 {
		events = append(events, model.AbsenceChanged(classID, delta))
	}

	n := min(len(old.Subjects), len(cur.Subjects))
	for i := 0; i < n; i++ {
		o, c := &old.Subjects[i], &cur.Subjects[i]
		if c.Grades != nil {
			for _, g := range added(o.Grades, c.Grades, identity[model.GradeRecord]) {
				events = append(events, model.GradeAdded(classID, i, g))
			}
		}
		if c.Notes != nil {
			for _, nt := range added(o.Notes, c.Notes, identity[model.NoteRecord]) {
				events = append(events, model.NoteAdded(classID, i, nt))
			}
		}
	}

	return events
}

func appendTests(events []model.ChangeEvent, classID int, prev, next []model.TestRecord) []model.ChangeEvent {
	for _, t := range added(prev, next, model.TestRecord.Key) {
		events = append(events, model.TestAdded(classID, t))
	}
	return events
}

func identity[T comparable](v T) T { return v }

// added returns the elements of next whose key is absent from prev, in the
// order they appear in next and without repeating a key.
func added[T any, K comparable](prev, next []T, key func(T) K) []T {
	if len(next) == 0 {
		return nil
	}
	seen := make(map[K]struct{}, len(prev)+len(next))
	for _, v := range prev {
		seen[key(v)] = struct{}{}
	}

	var out []T
	for _, v := range next {
		k := key(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
