package attendsvc

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	studentIDPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

	// RFC-light: something without whitespace/@, an @, a domain with a dot.
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s]+$`)

	// characters that could break out of rendered HTML or mail headers
	nameSanitizer = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "")
)

// ValidateRecord checks one attendance record and returns its normalized
// form: student id trimmed and upper-cased, parent email lower-cased, name
// stripped of markup-breaking characters. Missing-field checks run before any
// format check. Pure function, deterministic.
func ValidateRecord(rec AttendanceRecord) (valid ValidRecord, err error) {
	id := strings.TrimSpace(rec.StudentID)
	name := strings.TrimSpace(rec.StudentName)
	email := strings.TrimSpace(rec.ParentEmail)

	switch {
	case id == "":
		err = fmt.Errorf("%w: student_id", ErrMissingField)
		return
	case name == "":
		err = fmt.Errorf("%w: student_name", ErrMissingField)
		return
	case email == "":
		err = fmt.Errorf("%w: parent_email", ErrMissingField)
		return
	}

	id = strings.ToUpper(id)
	if len(id) < 3 || !studentIDPattern.MatchString(id) {
		err = fmt.Errorf("%w: %q must be alphanumeric with at least 3 characters", ErrInvalidStudentID, id)
		return
	}

	email = strings.ToLower(email)
	if !emailPattern.MatchString(email) {
		err = fmt.Errorf("%w: %q is not a valid address", ErrInvalidEmail, email)
		return
	}

	name = nameSanitizer.Replace(name)

	valid = ValidRecord{
		StudentID:   id,
		StudentName: name,
		ParentEmail: email,
		Status:      normalizeStatus(rec.Status),
		OccurredAt:  strings.TrimSpace(rec.OccurredAt),
	}
	return
}

// normalizeStatus folds anything that is not explicitly PRESENT into ABSENT.
func normalizeStatus(s Status) Status {
	if strings.EqualFold(strings.TrimSpace(string(s)), string(StatusPresent)) {
		return StatusPresent
	}

	return StatusAbsent
}
