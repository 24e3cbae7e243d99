package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAverages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		subjects     []SubjectRecord
		wantAverages []float64
		wantComplete float64
	}{
		{
			name:         "no subjects",
			wantComplete: 0,
		},
		{
			name: "mean rounded half up",
			subjects: []SubjectRecord{
				{Grades: []GradeRecord{{Grade: 5}, {Grade: 4}, {Grade: 4}}},
			},
			wantAverages: []float64{4.33},
			wantComplete: 4,
		},
		{
			name: "concluded grade wins over mean",
			subjects: []SubjectRecord{
				{Concluded: true, Average: 3, Grades: []GradeRecord{{Grade: 5}, {Grade: 5}}},
				{Grades: []GradeRecord{{Grade: 4}, {Grade: 5}}},
			},
			wantAverages: []float64{3, 4.5},
			wantComplete: 4,
		},
		{
			name: "subject without grades is skipped",
			subjects: []SubjectRecord{
				{Grades: []GradeRecord{{Grade: 2}, {Grade: 3}}},
				{},
			},
			wantAverages: []float64{2.5, 0},
			wantComplete: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			class := ClassRecord{Subjects: tt.subjects}
			class.ComputeAverages()

			for i, want := range tt.wantAverages {
				assert.InDelta(t, want, class.Subjects[i].Average, 1e-9, "subject %d", i)
			}
			assert.InDelta(t, tt.wantComplete, class.CompleteAverage, 1e-9)
		})
	}
}

func TestChangeEventJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event ChangeEvent
		wire  string
	}{
		{
			name:  "class",
			event: ClassChanged(),
			wire:  `{"type":"class"}`,
		},
		{
			name:  "grade",
			event: GradeAdded(0, 2, GradeRecord{Date: 200, Note: "test", Grade: 5}),
			wire:  `{"type":"grade","classId":0,"subjectId":2,"data":{"date":200,"note":"test","grade":5}}`,
		},
		{
			name:  "note",
			event: NoteAdded(0, 1, NoteRecord{Date: 10, Note: "late"}),
			wire:  `{"type":"note","classId":0,"subjectId":1,"data":{"date":10,"note":"late"}}`,
		},
		{
			name:  "absence keeps zero class id and delta",
			event: AbsenceChanged(0, -1),
			wire:  `{"type":"absence","classId":0,"countDelta":-1}`,
		},
		{
			name:  "test",
			event: TestAdded(0, TestRecord{ID: 3, Subject: "Math", Test: "Algebra", Date: 99, Current: true}),
			wire:  `{"type":"test","classId":0,"data":{"id":3,"subject":"Math","test":"Algebra","date":99,"current":true}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wire, string(b))

			var decoded ChangeEvent
			require.NoError(t, json.Unmarshal([]byte(tt.wire), &decoded))
			assert.Equal(t, tt.event, decoded)
		})
	}
}

func TestChangeEventUnmarshalRejectsUnknownKind(t *testing.T) {
	t.Parallel()
	var e ChangeEvent
	err := json.Unmarshal([]byte(`{"type":"homework"}`), &e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event kind")
}

func TestSubjectName(t *testing.T) {
	t.Parallel()
	p := UserProfile{Data: ProfileSnapshot{Classes: []ClassRecord{
		{Subjects: []SubjectRecord{{Name: "Matematika"}, {Name: "Fizika"}}},
		{},
	}}}

	name, ok := p.SubjectName(0, 1)
	assert.True(t, ok)
	assert.Equal(t, "Fizika", name)

	_, ok = p.SubjectName(0, 2)
	assert.False(t, ok)
	_, ok = p.SubjectName(1, 0)
	assert.False(t, ok)
	_, ok = p.SubjectName(-1, 0)
	assert.False(t, ok)
}

func TestParseSettingOp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		action  string
		value   string
		want    SettingOp
		wantErr error
	}{
		{
			name:   "disable all",
			action: "notif.disable",
			value:  `true`,
			want:   SettingOp{Action: SettingNotifDisable, Enabled: true},
		},
		{
			name:   "ignore add",
			action: "notif.ignore.add",
			value:  `"grade"`,
			want:   SettingOp{Action: SettingNotifIgnoreAdd, Kind: KindGrade},
		},
		{
			name:   "ignore del",
			action: "notif.ignore.del",
			value:  `"note"`,
			want:   SettingOp{Action: SettingNotifIgnoreDel, Kind: KindNote},
		},
		{
			name:    "unknown action",
			action:  "notif.sound",
			value:   `true`,
			wantErr: ErrNonExistentSetting,
		},
		{
			name:    "read only action",
			action:  "notif.all",
			value:   `true`,
			wantErr: ErrNonExistentSetting,
		},
		{
			name:    "wrong payload type",
			action:  "notif.disable",
			value:   `"yes"`,
			wantErr: ErrInvalidSettingValue,
		},
		{
			name:    "unknown kind",
			action:  "notif.ignore.add",
			value:   `"homework"`,
			wantErr: ErrInvalidSettingValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			op, err := ParseSettingOp(tt.action, json.RawMessage(tt.value))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, op)
		})
	}
}

func TestSettingOpApply(t *testing.T) {
	t.Parallel()

	s := NotificationSettings{}

	require.NoError(t, SettingOp{Action: SettingNotifIgnoreAdd, Kind: KindGrade}.Apply(&s))
	require.NoError(t, SettingOp{Action: SettingNotifIgnoreAdd, Kind: KindGrade}.Apply(&s))
	require.NoError(t, SettingOp{Action: SettingNotifIgnoreAdd, Kind: KindTest}.Apply(&s))
	assert.Equal(t, []EventKind{KindGrade, KindTest}, s.Ignore)
	assert.True(t, s.Ignores(KindGrade))

	require.NoError(t, SettingOp{Action: SettingNotifIgnoreDel, Kind: KindGrade}.Apply(&s))
	assert.Equal(t, []EventKind{KindTest}, s.Ignore)

	err := SettingOp{Action: SettingNotifIgnoreDel, Kind: KindGrade}.Apply(&s)
	assert.ErrorIs(t, err, ErrNonExistentSetting)

	require.NoError(t, SettingOp{Action: SettingNotifDisable, Enabled: true}.Apply(&s))
	assert.True(t, s.DisableAll)
}

func TestReadSetting(t *testing.T) {
	t.Parallel()

	s := NotificationSettings{DisableAll: true, Ignore: []EventKind{KindNote}}

	v, err := ReadSetting(s, "notif.disable")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = ReadSetting(s, "notif.ignore")
	require.NoError(t, err)
	assert.Equal(t, []EventKind{KindNote}, v)

	v, err = ReadSetting(NotificationSettings{}, "notif.ignore")
	require.NoError(t, err)
	assert.Equal(t, []EventKind{}, v)

	v, err = ReadSetting(s, "notif.all")
	require.NoError(t, err)
	assert.Equal(t, NotificationSettings{DisableAll: true, Ignore: []EventKind{KindNote}}, v)

	v, err = ReadSetting(NotificationSettings{}, "notif.all")
	require.NoError(t, err)
	assert.Equal(t, NotificationSettings{Ignore: []EventKind{}}, v)

	_, err = ReadSetting(s, "notif.ignore.add")
	assert.ErrorIs(t, err, ErrNonExistentSetting)
}
