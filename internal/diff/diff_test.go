package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edap/edap-server/internal/model"
)

func snapshot(class model.ClassRecord, extra ...model.ClassRecord) *model.ProfileSnapshot {
	return &model.ProfileSnapshot{Classes: append([]model.ClassRecord{class}, extra...)}
}

func baseClass() model.ClassRecord {
	return model.ClassRecord{
		Name: "3.e",
		Tests: []model.TestRecord{
			{ID: 0, Subject: "Matematika", Test: "Derivacije", Date: 1000, Current: true},
		},
		Absences: model.Absences{Full: []model.AbsenceDay{{Date: 10}, {Date: 20}, {Date: 30}}},
		Subjects: []model.SubjectRecord{
			{
				ID:     0,
				Name:   "Matematika",
				Grades: []model.GradeRecord{{Date: 100, Note: "quiz", Grade: 4}},
				Notes:  []model.NoteRecord{},
			},
			{
				ID:     1,
				Name:   "Fizika",
				Grades: []model.GradeRecord{},
				Notes:  []model.NoteRecord{{Date: 50, Note: "forgot homework"}},
			},
		},
	}
}

func TestDiffIdentical(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		snap *model.ProfileSnapshot
	}{
		{name: "empty", snap: &model.ProfileSnapshot{}},
		{name: "populated", snap: snapshot(baseClass())},
		{name: "with placeholder classes", snap: snapshot(baseClass(), model.ClassRecord{ID: 1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Empty(t, Diff(tt.snap, tt.snap))
		})
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *model.ClassRecord) *model.ProfileSnapshot
		want   []model.ChangeEvent
	}{
		{
			name: "new grade on subject 0",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Subjects[0].Grades = append(c.Subjects[0].Grades, model.GradeRecord{Date: 200, Note: "test", Grade: 5})
				return snapshot(*c)
			},
			want: []model.ChangeEvent{
				model.GradeAdded(0, 0, model.GradeRecord{Date: 200, Note: "test", Grade: 5}),
			},
		},
		{
			name: "class count change short circuits everything else",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Subjects[0].Grades = append(c.Subjects[0].Grades, model.GradeRecord{Date: 200, Grade: 5})
				c.Tests = nil
				return snapshot(*c, model.ClassRecord{ID: 1})
			},
			want: []model.ChangeEvent{model.ClassChanged()},
		},
		{
			name: "same absence count with different content",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Absences.Full = []model.AbsenceDay{{Date: 11}, {Date: 21}, {Date: 31}}
				return snapshot(*c)
			},
			want: nil,
		},
		{
			name: "absence days added",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Absences.Full = append(c.Absences.Full, model.AbsenceDay{Date: 40}, model.AbsenceDay{Date: 50})
				return snapshot(*c)
			},
			want: []model.ChangeEvent{model.AbsenceChanged(0, 2)},
		},
		{
			name: "absence day removed",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Absences.Full = c.Absences.Full[:2]
				return snapshot(*c)
			},
			want: []model.ChangeEvent{model.AbsenceChanged(0, -1)},
		},
		{
			name: "new test ignores id",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Tests = []model.TestRecord{
					{ID: 0, Subject: "Fizika", Test: "Optika", Date: 900, Current: true},
					{ID: 1, Subject: "Matematika", Test: "Derivacije", Date: 1000, Current: true},
				}
				return snapshot(*c)
			},
			want: []model.ChangeEvent{
				model.TestAdded(0, model.TestRecord{ID: 0, Subject: "Fizika", Test: "Optika", Date: 900, Current: true}),
			},
		},
		{
			name: "removed test emits nothing",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Tests = nil
				return snapshot(*c)
			},
			want: nil,
		},
		{
			name: "duplicate new grades are emitted once",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				g := model.GradeRecord{Date: 300, Note: "oral", Grade: 3}
				c.Subjects[1].Grades = []model.GradeRecord{g, g}
				return snapshot(*c)
			},
			want: []model.ChangeEvent{model.GradeAdded(0, 1, model.GradeRecord{Date: 300, Note: "oral", Grade: 3})},
		},
		{
			name: "reordered grades are not new",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Subjects[0].Grades = []model.GradeRecord{{Date: 1, Grade: 2}, {Date: 100, Note: "quiz", Grade: 4}}
				return snapshot(*c)
			},
			want: []model.ChangeEvent{model.GradeAdded(0, 0, model.GradeRecord{Date: 1, Grade: 2})},
		},
		{
			name: "null grades on the new side are skipped",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Subjects[0].Grades = nil
				c.Subjects[1].Notes = nil
				return snapshot(*c)
			},
			want: nil,
		},
		{
			name: "extra subject beyond the shorter list is ignored",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Subjects = append(c.Subjects, model.SubjectRecord{
					ID:     2,
					Grades: []model.GradeRecord{{Date: 5, Grade: 5}},
				})
				return snapshot(*c)
			},
			want: nil,
		},
		{
			name: "event ordering",
			mutate: func(c *model.ClassRecord) *model.ProfileSnapshot {
				c.Subjects[1].Notes = append(c.Subjects[1].Notes, model.NoteRecord{Date: 60, Note: "talking"})
				c.Subjects[0].Grades = append(c.Subjects[0].Grades, model.GradeRecord{Date: 70, Grade: 1})
				c.Subjects[0].Notes = append(c.Subjects[0].Notes, model.NoteRecord{Date: 71, Note: "no book"})
				c.Absences.Full = append(c.Absences.Full, model.AbsenceDay{Date: 80})
				c.Tests = append(c.Tests, model.TestRecord{Subject: "Kemija", Test: "Kiseline", Date: 2000})
				return snapshot(*c)
			},
			want: []model.ChangeEvent{
				model.TestAdded(0, model.TestRecord{Subject: "Kemija", Test: "Kiseline", Date: 2000}),
				model.AbsenceChanged(0, 1),
				model.GradeAdded(0, 0, model.GradeRecord{Date: 70, Grade: 1}),
				model.NoteAdded(0, 0, model.NoteRecord{Date: 71, Note: "no book"}),
				model.NoteAdded(0, 1, model.NoteRecord{Date: 60, Note: "talking"}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prev := snapshot(baseClass())
			next := baseClass()
			got := Diff(prev, tt.mutate(&next))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiffFromEmpty(t *testing.T) {
	t.Parallel()
	got := Diff(&model.ProfileSnapshot{}, snapshot(baseClass()))
	assert.Equal(t, []model.ChangeEvent{model.ClassChanged()}, got)
}
