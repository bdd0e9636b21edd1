package attendsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRecordNormalizes(t *testing.T) {
	valid, err := ValidateRecord(AttendanceRecord{
		StudentID:   "  sah25009 ",
		StudentName: ` Aditya <b>"Raj"</b> & co `,
		ParentEmail: " Parent@Example.COM ",
		Status:      "present",
		OccurredAt:  " 2025-07-01T09:05:00+05:30 ",
	})

	require.NoError(t, err)
	assert.Equal(t, "SAH25009", valid.StudentID)
	assert.Equal(t, "Aditya bRaj/b  co", valid.StudentName)
	assert.Equal(t, "parent@example.com", valid.ParentEmail)
	assert.Equal(t, StatusPresent, valid.Status)
	assert.Equal(t, "2025-07-01T09:05:00+05:30", valid.OccurredAt)
}

func TestValidateRecordRejections(t *testing.T) {
	base := AttendanceRecord{
		StudentID:   "SAH25009",
		StudentName: "Aditya Raj",
		ParentEmail: "parent@example.com",
		Status:      StatusPresent,
	}

	testCases := []struct {
		name    string
		mutate  func(rec *AttendanceRecord)
		wantErr error
	}{
		{
			name:    "missing student id",
			mutate:  func(rec *AttendanceRecord) { rec.StudentID = "   " },
			wantErr: ErrMissingField,
		},
		{
			name:    "missing student name",
			mutate:  func(rec *AttendanceRecord) { rec.StudentName = "" },
			wantErr: ErrMissingField,
		},
		{
			name:    "missing parent email",
			mutate:  func(rec *AttendanceRecord) { rec.ParentEmail = "" },
			wantErr: ErrMissingField,
		},
		{
			name:    "student id too short",
			mutate:  func(rec *AttendanceRecord) { rec.StudentID = "A1" },
			wantErr: ErrInvalidStudentID,
		},
		{
			name:    "student id with separator",
			mutate:  func(rec *AttendanceRecord) { rec.StudentID = "SAH-25009" },
			wantErr: ErrInvalidStudentID,
		},
		{
			name:    "email without at sign",
			mutate:  func(rec *AttendanceRecord) { rec.ParentEmail = "not-an-email" },
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "email without tld dot",
			mutate:  func(rec *AttendanceRecord) { rec.ParentEmail = "parent@example" },
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "email with whitespace",
			mutate:  func(rec *AttendanceRecord) { rec.ParentEmail = "pa rent@example.com" },
			wantErr: ErrInvalidEmail,
		},
		{
			// missing-field check must win over format checks
			name: "missing email beats bad student id",
			mutate: func(rec *AttendanceRecord) {
				rec.StudentID = "!!"
				rec.ParentEmail = ""
			},
			wantErr: ErrMissingField,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			rec := base
			testCase.mutate(&rec)

			_, err := ValidateRecord(rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestValidateRecordDeterministic(t *testing.T) {
	corpus := []AttendanceRecord{
		{StudentID: "SAH25009", StudentName: "Aditya Raj", ParentEmail: "parent@example.com", Status: StatusPresent},
		{StudentID: "x", StudentName: "Short Id", ParentEmail: "short@example.com"},
		{StudentID: "SAH25010", StudentName: "", ParentEmail: "noname@example.com"},
		{StudentID: "SAH25011", StudentName: "Bad Mail", ParentEmail: "bad"},
	}

	classify := func(rec AttendanceRecord) string {
		_, err := ValidateRecord(rec)
		if err == nil {
			return "valid"
		}
		return err.Error()
	}

	first := make([]string, 0, len(corpus))
	for _, rec := range corpus {
		first = append(first, classify(rec))
	}

	// reversed call order must not change any classification
	for i := len(corpus) - 1; i >= 0; i-- {
		assert.Equal(t, first[i], classify(corpus[i]))
	}

	assert.Equal(t, "valid", first[0])
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusPresent, normalizeStatus("present"))
	assert.Equal(t, StatusPresent, normalizeStatus(" PRESENT "))
	assert.Equal(t, StatusAbsent, normalizeStatus("ABSENT"))
	assert.Equal(t, StatusAbsent, normalizeStatus(""))
	assert.Equal(t, StatusAbsent, normalizeStatus("late"))
}
