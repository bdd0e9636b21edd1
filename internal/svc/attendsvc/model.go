package attendsvc

// Status is the attendance state reported for a student.
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
)

// AttendanceRecord is the raw inbound record, exactly as the caller sent it.
// Nothing here is trusted until ValidateRecord has run.
type AttendanceRecord struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	ParentEmail string `json:"parent_email"`
	Status      Status `json:"status"`
	OccurredAt  string `json:"occurred_at,omitempty"`
}

// ValidRecord is an AttendanceRecord that passed validation: id upper-cased,
// email lower-cased, name sanitized. A record is either fully valid or
// rejected before any send attempt.
type ValidRecord struct {
	StudentID   string
	StudentName string
	ParentEmail string
	Status      Status
	OccurredAt  string
}

// NotificationResult is the outcome for one input record. Immutable once
// appended to a batch result.
type NotificationResult struct {
	StudentID string `json:"student_id,omitempty"`
	OK        bool   `json:"ok"`
	DryRun    bool   `json:"dry_run,omitempty"`
	Message   string `json:"message,omitempty"`
}

// BatchResult aggregates one SendBatch call. Results are ordered one-to-one
// with the input records, so callers can zip inputs to outputs by index.
type BatchResult struct {
	Sent    int                  `json:"sent"`
	Total   int                  `json:"total"`
	Results []NotificationResult `json:"results"`
}
