package mailclient

import (
	"context"

	"github.com/sahyadri/presensi/pkg/logger"
)

// DryRunMailer simulates the mail channel: every envelope is accepted and
// reported successful with DryRun set. Used when no transport is configured
// or when dry-run is requested explicitly.
type DryRunMailer struct {
	Log logger.Logger
}

var _ Client = (*DryRunMailer)(nil)

func NewDryRun(log logger.Logger) *DryRunMailer {
	if log == nil {
		log = &logger.Noop{}
	}

	return &DryRunMailer{Log: log}
}

// Send never fails: the dry-run channel reports success for every envelope.
func (d *DryRunMailer) Send(ctx context.Context, env Envelope) (receipt Receipt, err error) {
	d.Log.Info(ctx, "dry-run send",
		logger.KV("tracking_id", env.TrackingID),
		logger.KV("to", env.To),
		logger.KV("subject", env.Subject),
		logger.KV("attachments", len(env.Attachments)),
	)

	receipt = Receipt{
		MessageID: env.TrackingID,
		DryRun:    true,
	}
	return
}

func (d *DryRunMailer) Close() error {
	return nil
}
