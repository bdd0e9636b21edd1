package attendsvc

import (
	"context"
)

// Service is the notification core consumed by the HTTP transport.
type Service interface {
	// SendOne runs the validate-render-send pipeline for exactly one record.
	// Unlike SendBatch, a validation or transport failure is returned as an
	// error to the caller.
	SendOne(ctx context.Context, input InputSendOne) (out *OutSendOne, err error)

	// SendBatch processes records strictly in input order. Per-record
	// failures are recorded in the result and never abort the batch; the only
	// fatal error is an empty input (ErrEmptyBatch).
	SendBatch(ctx context.Context, input InputSendBatch) (out *BatchResult, err error)

	// SendWithReport is SendOne plus a report attachment built from
	// caller-provided lines. Generating the report content is the caller's
	// collaborator's job; this only carries it to the mail channel.
	SendWithReport(ctx context.Context, input InputSendReport) (out *OutSendOne, err error)
}

type InputSendOne struct {
	Record AttendanceRecord
}

type InputSendBatch struct {
	Records []AttendanceRecord
}

type InputSendReport struct {
	StudentName string
	ParentEmail string
	ReportLines []string
}

type OutSendOne struct {
	MessageID string `json:"message_id"`
	DryRun    bool   `json:"dry_run,omitempty"`
}
