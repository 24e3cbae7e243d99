package model

import (
	"encoding/json"
	"fmt"
)

// EventKind is the category of a change event.
type EventKind string

// Event kinds, in the order they can appear in a diff result.
const (
	KindClass   EventKind = "class"
	KindTest    EventKind = "test"
	KindAbsence EventKind = "absence"
	KindGrade   EventKind = "grade"
	KindNote    EventKind = "note"
)

// AllKinds lists every event kind.
var AllKinds = []EventKind{KindClass, KindTest, KindAbsence, KindGrade, KindNote}

// ParseEventKind validates s as an event kind.
func ParseEventKind(s string) (EventKind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// ChangeEvent is one detected difference between two snapshots.
//
// Which of the payload fields is meaningful depends on Kind: Test for test
// events, Grade and SubjectID for grade events, Note and SubjectID for note
// events, CountDelta for absence events. Class events carry nothing.
type ChangeEvent struct {
	Kind       EventKind
	ClassID    int
	SubjectID  int
	Test       *TestRecord
	Grade      *GradeRecord
	Note       *NoteRecord
	CountDelta int
}

// ClassChanged reports a change in the number of classes.
func ClassChanged() ChangeEvent {
	return ChangeEvent{Kind: KindClass}
}

// TestAdded reports a test not seen before.
func TestAdded(classID int, t TestRecord) ChangeEvent {
	return ChangeEvent{Kind: KindTest, ClassID: classID, Test: &t}
}

// AbsenceChanged reports a change in the number of absence days.
func AbsenceChanged(classID, delta int) ChangeEvent {
	return ChangeEvent{Kind: KindAbsence, ClassID: classID, CountDelta: delta}
}

// GradeAdded reports a new grade on a subject.
func GradeAdded(classID, subjectID int, g GradeRecord) ChangeEvent {
	return ChangeEvent{Kind: KindGrade, ClassID: classID, SubjectID: subjectID, Grade: &g}
}

// NoteAdded reports a new note on a subject.
func NoteAdded(classID, subjectID int, n NoteRecord) ChangeEvent {
	return ChangeEvent{Kind: KindNote, ClassID: classID, SubjectID: subjectID, Note: &n}
}

type eventWire struct {
	Type       EventKind       `json:"type"`
	ClassID    *int            `json:"classId,omitempty"`
	SubjectID  *int            `json:"subjectId,omitempty"`
	CountDelta *int            `json:"countDelta,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON encodes the event as {type, classId, subjectId, data}, with only
// the fields relevant to its kind present.
func (e ChangeEvent) MarshalJSON() ([]byte, error) {
	w := eventWire{Type: e.Kind}
	var data any

	switch e.Kind {
	case KindClass:
	case KindTest:
		w.ClassID = &e.ClassID
		data = e.Test
	case KindAbsence:
		w.ClassID = &e.ClassID
		w.CountDelta = &e.CountDelta
	case KindGrade:
		w.ClassID, w.SubjectID = &e.ClassID, &e.SubjectID
		data = e.Grade
	case KindNote:
		w.ClassID, w.SubjectID = &e.ClassID, &e.SubjectID
		data = e.Note
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		w.Data = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (e *ChangeEvent) UnmarshalJSON(b []byte) error {
	var w eventWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	kind, err := ParseEventKind(string(w.Type))
	if err != nil {
		return err
	}

	out := ChangeEvent{Kind: kind}
	if w.ClassID != nil {
		out.ClassID = *w.ClassID
	}
	if w.SubjectID != nil {
		out.SubjectID = *w.SubjectID
	}
	if w.CountDelta != nil {
		out.CountDelta = *w.CountDelta
	}

	if len(w.Data) > 0 && string(w.Data) != "null" {
		switch kind {
		case KindTest:
			out.Test = &TestRecord{}
			err = json.Unmarshal(w.Data, out.Test)
		case KindGrade:
			out.Grade = &GradeRecord{}
			err = json.Unmarshal(w.Data, out.Grade)
		case KindNote:
			out.Note = &NoteRecord{}
			err = json.Unmarshal(w.Data, out.Note)
		case KindClass, KindAbsence:
		}
		if err != nil {
			return fmt.Errorf("decoding %s event data: %w", kind, err)
		}
	}

	*e = out
	return nil
}
