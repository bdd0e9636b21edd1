package mailclient

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDryRunAlwaysSucceeds(t *testing.T) {
	client := NewDryRun(nil)

	receipt, err := client.Send(context.TODO(), Envelope{
		TrackingID: "track-1",
		SenderAddr: "noreply@school.example",
		To:         "parent@example.com",
		Subject:    "hello",
		Text:       "hello body",
	})

	require.NoError(t, err)
	assert.True(t, receipt.DryRun)
	assert.Equal(t, "track-1", receipt.MessageID)
	assert.NoError(t, client.Close())
}

func TestWriteMessage(t *testing.T) {
	env := Envelope{
		TrackingID: "track-2",
		SenderAddr: "noreply@school.example",
		To:         "parent@example.com",
		ReplyTo:    "office@school.example",
		Subject:    "Attendance Update",
		Text:       "plain body here",
		HTML:       "<p>html body here</p>",
		Headers:    map[string]string{"X-School-Code": "SAH"},
		Attachments: map[string]string{
			"attendance-report.txt": "line one\nline two",
		},
	}

	buf := bytes.NewBuffer(nil)
	err := writeMessage(buf, env)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "Subject: Attendance Update")
	assert.Contains(t, raw, "To: parent@example.com")
	assert.Contains(t, raw, "Reply-To: office@school.example")
	assert.Contains(t, raw, "X-School-Code: SAH")
	assert.Contains(t, raw, "plain body here")
	assert.Contains(t, raw, "html body here")
	assert.Contains(t, raw, "attendance-report.txt")
}

func TestNewSmtpRequiresCredential(t *testing.T) {
	client, err := NewSmtp(&SmtpMailerConfig{})
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNewSmtpNoConnectionOnConstruct(t *testing.T) {
	client, err := NewSmtp(&SmtpMailerConfig{
		EmailCredential: &EmailCredential{
			Protocol:   "smtp",
			ServerHost: "smtp.school.example",
			ServerPort: 587,
			Username:   "mailer",
			Password:   "secret",
		},
	})

	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Nil(t, client.smtp)
	assert.NoError(t, client.Close())
}
