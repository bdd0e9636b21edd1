package attendsvc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/sonyflake"
	"golang.org/x/sync/semaphore"

	"github.com/sahyadri/presensi/pkg/logger"
	"github.com/sahyadri/presensi/pkg/mailclient"
	"github.com/sahyadri/presensi/pkg/tracer"
	"github.com/sahyadri/presensi/pkg/validator"
)

const reportAttachmentName = "attendance-report.txt"

type DispatcherConfig struct {
	Mailer     mailclient.Client `validate:"required"`
	SenderAddr string            `validate:"required,email"`
	ReplyTo    string            `validate:"omitempty,email"`

	// MessageDelay is the fixed pause after every send attempt inside a
	// batch. It protects the outbound transport from burst throttling and is
	// independent from the inbound rate governor.
	MessageDelay time.Duration `validate:"min=0"`

	// MaxParallel bounds concurrently running batches. Records inside one
	// batch always stay strictly sequential.
	MaxParallel int `validate:"required,min=1"`

	IDGen *sonyflake.Sonyflake `validate:"required"`
	Log   logger.Logger        `validate:"-"`
}

// Dispatcher is the batch notification core: validate, render, hand to the
// mail channel, account per record.
type Dispatcher struct {
	Config DispatcherConfig
	sem    *semaphore.Weighted
}

var _ Service = (*Dispatcher)(nil)

func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	err := validator.Validate(cfg)
	if err != nil {
		return nil, fmt.Errorf("dispatcher config error: %w", err)
	}

	if cfg.Log == nil {
		cfg.Log = &logger.Noop{}
	}

	return &Dispatcher{
		Config: cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxParallel)),
	}, nil
}

func (d *Dispatcher) SendBatch(ctx context.Context, input InputSendBatch) (out *BatchResult, err error) {
	ctx, span := tracer.StartSpan(ctx, "attendsvc.SendBatch")
	defer span.End()

	if len(input.Records) == 0 {
		err = ErrEmptyBatch
		return
	}

	if err = d.sem.Acquire(ctx, 1); err != nil {
		err = fmt.Errorf("cannot acquire batch slot: %w", err)
		return
	}
	defer d.sem.Release(1)

	results := make([]NotificationResult, 0, len(input.Records))
	sent := 0

	for i, rec := range input.Records {
		res, attempted := d.processRecord(ctx, rec)
		if res.OK {
			sent++
		}
		results = append(results, res)

		// batch-level pacing between outbound sends; a validation rejection
		// never reached the transport so it does not pause
		if attempted && i < len(input.Records)-1 && d.Config.MessageDelay > 0 {
			time.Sleep(d.Config.MessageDelay)
		}
	}

	out = &BatchResult{
		Sent:    sent,
		Total:   len(input.Records),
		Results: results,
	}

	d.Config.Log.Info(ctx, "batch completed",
		logger.KV("sent", out.Sent),
		logger.KV("total", out.Total),
	)
	return
}

// processRecord runs one record through validate-render-send. attempted
// reports whether the mail channel was invoked.
func (d *Dispatcher) processRecord(ctx context.Context, rec AttendanceRecord) (res NotificationResult, attempted bool) {
	valid, err := ValidateRecord(rec)
	if err != nil {
		// echo the id with the same normalization a valid record gets, so
		// callers zipping results by id see one spelling per input
		echoID := strings.ToUpper(strings.TrimSpace(rec.StudentID))

		d.Config.Log.Warn(ctx, "record rejected",
			logger.KV("student_id", echoID),
			logger.KV("reason", err.Error()),
		)

		res = NotificationResult{
			StudentID: echoID,
			OK:        false,
			Message:   err.Error(),
		}
		return
	}

	attempted = true

	receipt, err := d.send(ctx, valid)
	if err != nil {
		d.Config.Log.Error(ctx, "send failed",
			logger.KV("student_id", valid.StudentID),
			logger.KV("to", valid.ParentEmail),
			logger.KV("error", err.Error()),
		)

		res = NotificationResult{
			StudentID: valid.StudentID,
			OK:        false,
			Message:   err.Error(),
		}
		return
	}

	d.Config.Log.Info(ctx, "send ok",
		logger.KV("student_id", valid.StudentID),
		logger.KV("message_id", receipt.MessageID),
		logger.KV("dry_run", receipt.DryRun),
	)

	res = NotificationResult{
		StudentID: valid.StudentID,
		OK:        true,
		DryRun:    receipt.DryRun,
	}
	return
}

func (d *Dispatcher) SendOne(ctx context.Context, input InputSendOne) (out *OutSendOne, err error) {
	ctx, span := tracer.StartSpan(ctx, "attendsvc.SendOne")
	defer span.End()

	valid, err := ValidateRecord(input.Record)
	if err != nil {
		return
	}

	receipt, err := d.send(ctx, valid)
	if err != nil {
		return
	}

	out = &OutSendOne{
		MessageID: receipt.MessageID,
		DryRun:    receipt.DryRun,
	}
	return
}

func (d *Dispatcher) SendWithReport(ctx context.Context, input InputSendReport) (out *OutSendOne, err error) {
	ctx, span := tracer.StartSpan(ctx, "attendsvc.SendWithReport")
	defer span.End()

	name := strings.TrimSpace(input.StudentName)
	if name == "" {
		err = fmt.Errorf("%w: student_name", ErrMissingField)
		return
	}
	name = nameSanitizer.Replace(name)

	email := strings.ToLower(strings.TrimSpace(input.ParentEmail))
	if email == "" {
		err = fmt.Errorf("%w: parent_email", ErrMissingField)
		return
	}
	if !emailPattern.MatchString(email) {
		err = fmt.Errorf("%w: %q is not a valid address", ErrInvalidEmail, email)
		return
	}

	if len(input.ReportLines) == 0 {
		err = fmt.Errorf("%w: report_lines", ErrMissingField)
		return
	}

	trackingID, err := d.trackingID()
	if err != nil {
		return
	}

	content := RenderReport(name)
	receipt, err := d.Config.Mailer.Send(ctx, mailclient.Envelope{
		TrackingID: trackingID,
		SenderAddr: d.Config.SenderAddr,
		To:         email,
		ReplyTo:    d.Config.ReplyTo,
		Subject:    content.Subject,
		Text:       content.Text,
		HTML:       content.HTML,
		Attachments: map[string]string{
			reportAttachmentName: strings.Join(input.ReportLines, "\n"),
		},
	})
	if err != nil {
		return
	}

	d.Config.Log.Info(ctx, "report sent",
		logger.KV("to", email),
		logger.KV("message_id", receipt.MessageID),
		logger.KV("dry_run", receipt.DryRun),
	)

	out = &OutSendOne{
		MessageID: receipt.MessageID,
		DryRun:    receipt.DryRun,
	}
	return
}

// send renders content per status and invokes the mail channel once.
func (d *Dispatcher) send(ctx context.Context, valid ValidRecord) (receipt mailclient.Receipt, err error) {
	var content Content
	switch valid.Status {
	case StatusPresent:
		content = RenderPresent(ctx, valid.StudentID, valid.StudentName, valid.OccurredAt)
	default:
		content = RenderAbsent(ctx, valid.StudentID, valid.StudentName, valid.OccurredAt)
	}

	trackingID, err := d.trackingID()
	if err != nil {
		return
	}

	receipt, err = d.Config.Mailer.Send(ctx, mailclient.Envelope{
		TrackingID: trackingID,
		SenderAddr: d.Config.SenderAddr,
		To:         valid.ParentEmail,
		ReplyTo:    d.Config.ReplyTo,
		Subject:    content.Subject,
		Text:       content.Text,
		HTML:       content.HTML,
	})
	return
}

func (d *Dispatcher) trackingID() (string, error) {
	id, err := d.Config.IDGen.NextID()
	if err != nil {
		return "", fmt.Errorf("cannot generate tracking id: %w", err)
	}

	return fmt.Sprint(id), nil
}
