package attendsvc

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sony/sonyflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahyadri/presensi/pkg/mailclient"
)

// fakeMailer records envelopes and fails for recipients listed in failFor.
type fakeMailer struct {
	lock      sync.Mutex
	envelopes []mailclient.Envelope
	failFor   map[string]bool
}

var _ mailclient.Client = (*fakeMailer)(nil)

func (f *fakeMailer) Send(_ context.Context, env mailclient.Envelope) (mailclient.Receipt, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.envelopes = append(f.envelopes, env)
	if f.failFor[env.To] {
		return mailclient.Receipt{}, fmt.Errorf("%w: connection refused", mailclient.ErrTransport)
	}

	return mailclient.Receipt{MessageID: env.TrackingID}, nil
}

func (f *fakeMailer) Close() error { return nil }

func (f *fakeMailer) sent() []mailclient.Envelope {
	f.lock.Lock()
	defer f.lock.Unlock()

	out := make([]mailclient.Envelope, len(f.envelopes))
	copy(out, f.envelopes)
	return out
}

func testIDGen(t *testing.T) *sonyflake.Sonyflake {
	t.Helper()

	idGen := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2021, 6, 28, 0, 0, 0, 0, time.UTC),
		MachineID: func() (uint16, error) { return 1, nil },
	})
	require.NotNil(t, idGen)
	return idGen
}

func newTestDispatcher(t *testing.T, mailer mailclient.Client, delay time.Duration) *Dispatcher {
	t.Helper()

	d, err := NewDispatcher(DispatcherConfig{
		Mailer:       mailer,
		SenderAddr:   "noreply@school.example",
		MessageDelay: delay,
		MaxParallel:  2,
		IDGen:        testIDGen(t),
	})
	require.NoError(t, err)
	return d
}

func TestNewDispatcherConfigError(t *testing.T) {
	d, err := NewDispatcher(DispatcherConfig{})
	assert.Error(t, err)
	assert.Nil(t, d)
}

func TestSendBatchEmpty(t *testing.T) {
	d := newTestDispatcher(t, &fakeMailer{}, 0)

	out, err := d.SendBatch(context.TODO(), InputSendBatch{})
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.Nil(t, out)

	out, err = d.SendBatch(context.TODO(), InputSendBatch{Records: []AttendanceRecord{}})
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.Nil(t, out)
}

func TestSendBatchIsolatesBadRecord(t *testing.T) {
	d := newTestDispatcher(t, mailclient.NewDryRun(nil), 0)

	records := []AttendanceRecord{
		{StudentID: "SAH25001", StudentName: "Riya Patil", ParentEmail: "riya.p@example.com", Status: StatusPresent},
		{StudentID: "SAH25002", StudentName: "Kabir Shah", ParentEmail: "not-an-email", Status: StatusPresent},
		{StudentID: "SAH25003", StudentName: "Ishaan Naik", ParentEmail: "ishaan.n@example.com", Status: StatusAbsent},
	}

	out, err := d.SendBatch(context.TODO(), InputSendBatch{Records: records})
	require.NoError(t, err)
	require.Len(t, out.Results, 3)

	assert.Equal(t, 2, out.Sent)
	assert.Equal(t, 3, out.Total)

	assert.True(t, out.Results[0].OK)
	assert.True(t, out.Results[0].DryRun)
	assert.False(t, out.Results[1].OK)
	assert.Contains(t, out.Results[1].Message, "invalid parent email")
	assert.True(t, out.Results[2].OK)

	// order preserved, ids echoed
	assert.Equal(t, "SAH25001", out.Results[0].StudentID)
	assert.Equal(t, "SAH25002", out.Results[1].StudentID)
	assert.Equal(t, "SAH25003", out.Results[2].StudentID)
}

func TestSendBatchEchoesNormalizedIDOnRejection(t *testing.T) {
	d := newTestDispatcher(t, mailclient.NewDryRun(nil), 0)

	records := []AttendanceRecord{
		{StudentID: " sah25002 ", StudentName: "Kabir Shah", ParentEmail: "not-an-email", Status: StatusPresent},
		{StudentID: "sah25003", StudentName: "Ishaan Naik", ParentEmail: "ishaan.n@example.com", Status: StatusPresent},
	}

	out, err := d.SendBatch(context.TODO(), InputSendBatch{Records: records})
	require.NoError(t, err)
	require.Len(t, out.Results, 2)

	// rejected and sent records carry the same id normalization
	assert.False(t, out.Results[0].OK)
	assert.Equal(t, "SAH25002", out.Results[0].StudentID)
	assert.True(t, out.Results[1].OK)
	assert.Equal(t, "SAH25003", out.Results[1].StudentID)
}

func TestSendBatchTransportFailureContinues(t *testing.T) {
	mailer := &fakeMailer{failFor: map[string]bool{"broken@example.com": true}}
	d := newTestDispatcher(t, mailer, 0)

	records := []AttendanceRecord{
		{StudentID: "SAH25001", StudentName: "Riya Patil", ParentEmail: "riya.p@example.com", Status: StatusPresent},
		{StudentID: "SAH25002", StudentName: "Kabir Shah", ParentEmail: "broken@example.com", Status: StatusAbsent},
		{StudentID: "SAH25003", StudentName: "Ishaan Naik", ParentEmail: "ishaan.n@example.com", Status: StatusPresent},
	}

	out, err := d.SendBatch(context.TODO(), InputSendBatch{Records: records})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Sent)
	assert.False(t, out.Results[1].OK)
	assert.Contains(t, out.Results[1].Message, "mail transport error")

	// all three reached the channel: transport failure never aborts the batch
	assert.Len(t, mailer.sent(), 3)
}

func TestSendBatchValidationSkipsChannel(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDispatcher(t, mailer, 0)

	records := []AttendanceRecord{
		{StudentID: "", StudentName: "No Id", ParentEmail: "noid@example.com"},
		{StudentID: "SAH25004", StudentName: "Meera Joshi", ParentEmail: "meera.j@example.com", Status: StatusPresent},
	}

	out, err := d.SendBatch(context.TODO(), InputSendBatch{Records: records})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Sent)
	assert.Contains(t, out.Results[0].Message, "missing required field")

	// the rejected record must not produce a send attempt
	require.Len(t, mailer.sent(), 1)
	assert.Equal(t, "meera.j@example.com", mailer.sent()[0].To)
}

func TestSendBatchPacing(t *testing.T) {
	mailer := &fakeMailer{}
	delay := 20 * time.Millisecond
	d := newTestDispatcher(t, mailer, delay)

	records := []AttendanceRecord{
		{StudentID: "SAH25001", StudentName: "Riya Patil", ParentEmail: "riya.p@example.com", Status: StatusPresent},
		{StudentID: "SAH25002", StudentName: "Kabir Shah", ParentEmail: "kabir.s@example.com", Status: StatusPresent},
		{StudentID: "SAH25003", StudentName: "Ishaan Naik", ParentEmail: "ishaan.n@example.com", Status: StatusPresent},
	}

	t0 := time.Now()
	out, err := d.SendBatch(context.TODO(), InputSendBatch{Records: records})
	elapsed := time.Since(t0)

	require.NoError(t, err)
	assert.Equal(t, 3, out.Sent)
	assert.GreaterOrEqual(t, elapsed, 2*delay, "two pauses expected between three sends")
}

func TestSendOne(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDispatcher(t, mailer, 0)

	out, err := d.SendOne(context.TODO(), InputSendOne{
		Record: AttendanceRecord{
			StudentID:   "SAH25009",
			StudentName: "Aditya Raj",
			ParentEmail: "parent@example.com",
			Status:      StatusPresent,
		},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, out.MessageID)
	assert.False(t, out.DryRun)

	sent := mailer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, SubjectPresent, sent[0].Subject)
	assert.Equal(t, "parent@example.com", sent[0].To)
	assert.Contains(t, sent[0].Text, "Aditya Raj")
	assert.Contains(t, sent[0].Text, "SAH25009")
	assert.Contains(t, sent[0].Text, "PRESENT")
}

func TestSendOneValidationFailureSurfaces(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDispatcher(t, mailer, 0)

	out, err := d.SendOne(context.TODO(), InputSendOne{
		Record: AttendanceRecord{
			StudentID:   "SAH25009",
			StudentName: "Aditya Raj",
			ParentEmail: "not-an-email",
		},
	})

	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Nil(t, out)
	assert.Empty(t, mailer.sent())
}

func TestSendOneTransportFailureSurfaces(t *testing.T) {
	mailer := &fakeMailer{failFor: map[string]bool{"parent@example.com": true}}
	d := newTestDispatcher(t, mailer, 0)

	out, err := d.SendOne(context.TODO(), InputSendOne{
		Record: AttendanceRecord{
			StudentID:   "SAH25009",
			StudentName: "Aditya Raj",
			ParentEmail: "parent@example.com",
			Status:      StatusAbsent,
		},
	})

	assert.ErrorIs(t, err, mailclient.ErrTransport)
	assert.Nil(t, out)
}

func TestSendWithReport(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDispatcher(t, mailer, 0)

	out, err := d.SendWithReport(context.TODO(), InputSendReport{
		StudentName: "Aditya Raj",
		ParentEmail: "parent@example.com",
		ReportLines: []string{"2025-07-01 PRESENT", "2025-07-02 ABSENT"},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, out.MessageID)

	sent := mailer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, SubjectReport, sent[0].Subject)

	attachment, ok := sent[0].Attachments[reportAttachmentName]
	require.True(t, ok)
	assert.Equal(t, "2025-07-01 PRESENT\n2025-07-02 ABSENT", attachment)
}

func TestSendWithReportRejectsEmptyLines(t *testing.T) {
	d := newTestDispatcher(t, &fakeMailer{}, 0)

	out, err := d.SendWithReport(context.TODO(), InputSendReport{
		StudentName: "Aditya Raj",
		ParentEmail: "parent@example.com",
	})

	assert.ErrorIs(t, err, ErrMissingField)
	assert.Nil(t, out)
}
