// Package model defines the data mirrored from the grading portal, the per-user
// profile persisted by the server and the change events derived from it.
package model

import "math"

// ProfileSnapshot is the full structured mirror of one user's records.
//
// Only Classes[0] is ever populated in depth; the remaining entries carry class
// identity only. Comparisons between snapshots look at Classes[0] exclusively.
type ProfileSnapshot struct {
	Classes []ClassRecord `json:"classes"`
}

// Current returns the populated class, or nil when the snapshot is empty.
func (s *ProfileSnapshot) Current() *ClassRecord {
	if s == nil || len(s.Classes) == 0 {
		return nil
	}
	return &s.Classes[0]
}

// ClassRecord holds one school year of a student.
type ClassRecord struct {
	ID              int               `json:"id"`
	Name            string            `json:"class"`
	Year            string            `json:"year,omitempty"`
	School          string            `json:"school,omitempty"`
	Full            bool              `json:"full,omitempty"`
	Tests           []TestRecord      `json:"tests"`
	Absences        Absences          `json:"absences"`
	Subjects        []SubjectRecord   `json:"subjects"`
	CompleteAverage float64           `json:"complete_avg"`
	Info            map[string]string `json:"info,omitempty"`
}

// SubjectRecord holds the grades and notes of one subject. ID is the position of
// the subject in the upstream listing and is the only identity used when two
// snapshots are compared.
type SubjectRecord struct {
	ID         int           `json:"id"`
	Name       string        `json:"subject"`
	Professors []string      `json:"professors,omitempty"`
	Grades     []GradeRecord `json:"grades"`
	Notes      []NoteRecord  `json:"notes"`
	Average    float64       `json:"average,omitempty"`
	Concluded  bool          `json:"concluded"`
}

// GradeRecord is a single numeric grade. Date is a unix timestamp.
type GradeRecord struct {
	Date  int64  `json:"date"`
	Note  string `json:"note"`
	Grade int    `json:"grade"`
}

// NoteRecord is a teacher remark without a grade.
type NoteRecord struct {
	Date int64  `json:"date"`
	Note string `json:"note"`
}

// TestRecord is a scheduled exam. ID is assigned by position when the list is
// fetched and takes no part in equality.
type TestRecord struct {
	ID      int    `json:"id"`
	Subject string `json:"subject"`
	Test    string `json:"test"`
	Date    int64  `json:"date"`
	Current bool   `json:"current"`
}

// TestKey is the comparable identity of a test.
type TestKey struct {
	Subject string
	Test    string
	Date    int64
	Current bool
}

// Key returns the structural identity of the test.
func (t TestRecord) Key() TestKey {
	return TestKey{Subject: t.Subject, Test: t.Test, Date: t.Date, Current: t.Current}
}

// Absences groups the absence counters and the per-day list.
type Absences struct {
	Overview *AbsenceOverview `json:"overview"`
	Full     []AbsenceDay     `json:"full"`
}

// AbsenceOverview holds the upstream absence counters.
type AbsenceOverview struct {
	Justified   int `json:"justified"`
	Unjustified int `json:"unjustified"`
	Awaiting    int `json:"awaiting"`
	Sum         int `json:"sum"`
	SumLeftover int `json:"sum_leftover"`
}

// AbsenceDay lists the missed periods of one day.
type AbsenceDay struct {
	Date     int64           `json:"date"`
	Absences []AbsencePeriod `json:"absences"`
}

// AbsencePeriod is one missed lesson.
type AbsencePeriod struct {
	Period    string `json:"period"`
	Subject   string `json:"subject"`
	Reason    string `json:"reason"`
	Justified bool   `json:"justified"`
}

// ComputeAverages fills the per-subject averages and the class average.
//
// A concluded subject keeps the upstream value. Otherwise the average is the
// mean of its grades rounded half-up to two decimals. The class average is the
// mean over subjects of the concluded value or the whole-number rounded mean.
func (c *ClassRecord) ComputeAverages() {
	var all []float64
	for i := range c.Subjects {
		s := &c.Subjects[i]
		if s.Concluded {
			all = append(all, s.Average)
			continue
		}
		if len(s.Grades) == 0 {
			s.Average = 0
			continue
		}
		mean := s.mean()
		s.Average = roundHalfUp(mean, 2)
		all = append(all, roundHalfUp(mean, 0))
	}

	if len(all) == 0 {
		c.CompleteAverage = 0
		return
	}
	var sum float64
	for _, a := range all {
		sum += a
	}
	c.CompleteAverage = roundHalfUp(sum/float64(len(all)), 2)
}

func (s *SubjectRecord) mean() float64 {
	var sum int
	for _, g := range s.Grades {
		sum += g.Grade
	}
	return float64(sum) / float64(len(s.Grades))
}

func roundHalfUp(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	// nudge by a tiny epsilon so values like 2.675 stored as 2.67499.. round up
	return math.Floor(v*p+0.5+1e-9) / p
}
