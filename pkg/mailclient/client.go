package mailclient

import (
	"context"
	"errors"
	"io"
)

// ErrTransport marks every failure coming out of a real mail channel.
// Callers record it per message; it is never fatal to a batch.
var ErrTransport = errors.New("mail transport error")

// Client is the outbound mail channel. Implementations must be safe for
// concurrent Send calls and must enforce their own timeout rather than hang.
type Client interface {
	io.Closer
	Send(ctx context.Context, env Envelope) (receipt Receipt, err error)
}

// Envelope is a fully-addressed outbound message, ready to hand to the wire.
type Envelope struct {
	TrackingID string `validate:"required"`
	SenderAddr string `validate:"required"`
	To         string `validate:"required"`
	ReplyTo    string `validate:"-"`
	Subject    string `validate:"required"`
	Text       string `validate:"required"`
	HTML       string `validate:"-"`

	// Headers are extra top-level headers, e.g. X-School-Code.
	Headers map[string]string `validate:"-"`

	// Attachments maps file name to its content. The content is produced by
	// an external reporting collaborator; we only carry it onto the wire.
	Attachments map[string]string `validate:"-"`
}

// Receipt is what the channel synchronously reports for one envelope.
type Receipt struct {
	MessageID string `json:"message_id"`
	DryRun    bool   `json:"dry_run"`
}
