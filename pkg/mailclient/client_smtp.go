package mailclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/multierr"
	"gopkg.in/gomail.v2"

	"github.com/sahyadri/presensi/pkg/validator"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultSendTimeout = 30 * time.Second
)

type SmtpMailerConfig struct {
	EmailCredential *EmailCredential `validate:"required"`

	// SendTimeout bounds one full SMTP transaction. Zero means defaultSendTimeout.
	SendTimeout time.Duration `validate:"-"`
}

// SmtpMailer talks to a single SMTP endpoint. The connection is established
// lazily on the first Send and reused afterwards. Connection establishment is
// guarded by a circuit breaker so a dead endpoint fails fast instead of
// re-dialing on every record of a batch.
type SmtpMailer struct {
	Config *SmtpMailerConfig

	lock    sync.Mutex
	smtp    *smtp.Client
	conn    net.Conn
	breaker *gobreaker.CircuitBreaker[*smtp.Client]
}

var _ Client = (*SmtpMailer)(nil)

// NewSmtp will return new smtp client without any real connection is made.
// It will connect on the first Send.
func NewSmtp(cfg *SmtpMailerConfig) (*SmtpMailer, error) {
	err := validator.Validate(cfg)
	if err != nil {
		err = fmt.Errorf("validation error: %w", err)
		return nil, err
	}

	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	client := &SmtpMailer{
		Config: cfg,
		breaker: gobreaker.NewCircuitBreaker[*smtp.Client](gobreaker.Settings{
			Name:    "smtp-connect",
			Timeout: 30 * time.Second,
		}),
	}

	return client, nil
}

func (m *SmtpMailer) Send(ctx context.Context, env Envelope) (receipt Receipt, err error) {
	if _err := validator.Validate(env); _err != nil {
		err = fmt.Errorf("%w: envelope invalid: %w", ErrTransport, _err)
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.smtp == nil {
		m.smtp, err = m.breaker.Execute(func() (*smtp.Client, error) {
			c, conn, _err := initClient(ctx, m.Config.EmailCredential)
			if _err != nil {
				return nil, _err
			}
			m.conn = conn
			return c, nil
		})
		if err != nil {
			m.smtp = nil
			err = fmt.Errorf("%w: failed to init smtp client: %w", ErrTransport, err)
			return
		}
	}

	// every transaction gets a fresh deadline so a stuck server cannot hang the dispatcher
	if m.conn != nil {
		_ = m.conn.SetDeadline(time.Now().Add(m.Config.SendTimeout))
	}

	if err = m.transact(env); err != nil {
		// drop the connection, the next Send re-dials through the breaker
		_ = m.smtp.Close()
		m.smtp = nil
		m.conn = nil
		return
	}

	receipt = Receipt{MessageID: env.TrackingID}
	return
}

// transact runs one MAIL/RCPT/DATA exchange on the live connection.
func (m *SmtpMailer) transact(env Envelope) (err error) {
	// NOOP command to check if connection still ok
	if _err := m.smtp.Noop(); _err != nil {
		return fmt.Errorf("%w: smtp connection is not ok: %w", ErrTransport, _err)
	}

	// RSET aborts any mail transaction left over from a failed send
	// (tools.ietf.org/html/rfc5321#section-4.1.1.5).
	if _err := m.smtp.Reset(); _err != nil {
		return fmt.Errorf("%w: RSET cmd failed: %w", ErrTransport, _err)
	}

	if _err := m.smtp.Mail(env.SenderAddr, nil); _err != nil {
		return fmt.Errorf("%w: MAIL cmd failed: %w", ErrTransport, _err)
	}

	if _err := m.smtp.Rcpt(env.To); _err != nil {
		return fmt.Errorf("%w: error recipient %s: %w", ErrTransport, env.To, _err)
	}

	wc, _err := m.smtp.Data()
	if _err != nil {
		return fmt.Errorf("%w: error data writer: %w", ErrTransport, _err)
	}

	if _err = writeMessage(wc, env); _err != nil {
		_ = wc.Close()
		return fmt.Errorf("%w: error write message: %w", ErrTransport, _err)
	}

	if _err = wc.Close(); _err != nil {
		return fmt.Errorf("%w: error data close: %w", ErrTransport, _err)
	}

	return nil
}

// writeMessage assembles the MIME message (alternative text+HTML plus
// attachments) and streams it into the DATA writer.
func writeMessage(w io.Writer, env Envelope) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", env.SenderAddr)
	msg.SetHeader("To", env.To)
	msg.SetHeader("Subject", env.Subject)
	msg.SetHeader("Message-ID", fmt.Sprintf("<%s@presensi>", env.TrackingID))

	if env.ReplyTo != "" {
		msg.SetHeader("Reply-To", env.ReplyTo)
	}

	for k, v := range env.Headers {
		msg.SetHeader(k, v)
	}

	msg.SetBody("text/plain", env.Text)
	if env.HTML != "" {
		msg.AddAlternative("text/html", env.HTML)
	}

	for name, content := range env.Attachments {
		content := content
		msg.Attach(name, gomail.SetCopyFunc(func(out io.Writer) error {
			_, cpErr := io.WriteString(out, content)
			return cpErr
		}))
	}

	_, err := msg.WriteTo(w)
	return err
}

// Close .
// https://stackoverflow.com/questions/2468851/when-should-i-send-quit-to-smtp-server-and-how-long-should-i-keep-a-session
func (m *SmtpMailer) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.smtp == nil {
		return nil
	}

	var err error
	_err := m.smtp.Quit()
	if _err == nil {
		m.smtp = nil
		return nil
	}

	err = multierr.Append(err, fmt.Errorf("quit command error: %w", _err))
	_err = m.smtp.Close()
	if _err != nil {
		err = multierr.Append(err, fmt.Errorf("close command error: %w", _err))
		return err
	}

	m.smtp = nil
	return nil
}

// ----- Function here is intended to have simple function (not as method handler in a struct),
// because it will be easier to debug and test.

func initClient(ctx context.Context, cred *EmailCredential) (*smtp.Client, net.Conn, error) {
	err := validator.Validate(cred)
	if err != nil {
		err = fmt.Errorf("validation on email credential error: %w", err)
		return nil, nil, err
	}

	smtpAddr := fmt.Sprintf("%s:%d", cred.ServerHost, cred.ServerPort)

	dialer := net.Dialer{Timeout: defaultDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", smtpAddr)
	if err != nil {
		err = fmt.Errorf("tcp dial error: %w", err)
		return nil, nil, err
	}

	c, err := smtp.NewClient(conn, cred.ServerHost)
	if err != nil {
		err = fmt.Errorf("error new smtp client: %w", err)
		return nil, nil, err
	}

	err = c.StartTLS(&tls.Config{ServerName: cred.ServerHost})
	if err != nil {
		err = fmt.Errorf("error start tls: %w", err)
		return nil, nil, err
	}

	err = c.Auth(sasl.NewPlainClient(cred.AuthIdentity, cred.Username, cred.Password))
	if err != nil {
		err = fmt.Errorf("error auth: %w", err)
		return nil, nil, err
	}

	err = c.Noop()
	if err != nil {
		err = fmt.Errorf("check smtp is not ok: %w", err)
		return nil, nil, err
	}

	return c, conn, nil
}
