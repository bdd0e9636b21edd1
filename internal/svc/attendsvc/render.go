package attendsvc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sahyadri/presensi/pkg/logger"
)

// Fixed subject lines so downstream consumers can match on exact text.
const (
	SubjectPresent = "Attendance Update: Student Present"
	SubjectAbsent  = "Attendance Alert: Student Absent"
	SubjectReport  = "Attendance Report"
)

const schoolSignature = "Sahyadri Academy"

// All human-readable timestamps are rendered in IST regardless of server
// timezone. FixedZone avoids a tzdata dependency.
var istZone = time.FixedZone("IST", 5*3600+30*60)

const (
	presentTimeLayout = "Mon, 02 Jan 2006 at 03:04 PM"
	absentDateLayout  = "Mon, 02 Jan 2006"
)

// Content is one rendered notification: a plain-text and an HTML body that
// carry identical semantic content.
type Content struct {
	Subject string
	Text    string
	HTML    string
}

// RenderPresent builds the present notice. whenISO is formatted as date+time
// in IST; if unparsable, the current time is substituted with a warn log.
// Rendering never fails.
func RenderPresent(ctx context.Context, studentID, studentName, whenISO string) Content {
	when := parseOrNow(ctx, whenISO).In(istZone)
	human := when.Format(presentTimeLayout) + " IST"

	text := fmt.Sprintf(
		"Dear Parent,\n\n"+
			"This is to inform you that %s (Student ID: %s) was marked PRESENT on %s.\n\n"+
			"Regards,\n%s\n",
		studentName, studentID, human, schoolSignature,
	)

	html := fmt.Sprintf(
		`<div style="font-family:Arial,Helvetica,sans-serif;font-size:14px;color:#212121">`+
			`<p>Dear Parent,</p>`+
			`<p>This is to inform you that <strong>%s</strong> (Student ID: %s) was marked `+
			`<span style="background-color:#2e7d32;color:#ffffff;padding:2px 8px;border-radius:4px">PRESENT</span>`+
			` on %s.</p>`+
			`<p>Regards,<br/>%s</p>`+
			`</div>`,
		studentName, studentID, human, schoolSignature,
	)

	return Content{Subject: SubjectPresent, Text: text, HTML: html}
}

// RenderAbsent builds the absent notice. dateISO is formatted date-only in IST.
func RenderAbsent(ctx context.Context, studentID, studentName, dateISO string) Content {
	date := parseOrNow(ctx, dateISO).In(istZone)
	human := date.Format(absentDateLayout)

	text := fmt.Sprintf(
		"Dear Parent,\n\n"+
			"This is to inform you that %s (Student ID: %s) was marked ABSENT on %s.\n"+
			"Please contact the school office if this is unexpected.\n\n"+
			"Regards,\n%s\n",
		studentName, studentID, human, schoolSignature,
	)

	html := fmt.Sprintf(
		`<div style="font-family:Arial,Helvetica,sans-serif;font-size:14px;color:#212121">`+
			`<p>Dear Parent,</p>`+
			`<p>This is to inform you that <strong>%s</strong> (Student ID: %s) was marked `+
			`<span style="background-color:#e65100;color:#ffffff;padding:2px 8px;border-radius:4px">ABSENT</span>`+
			` on %s.</p>`+
			`<p>Please contact the school office if this is unexpected.</p>`+
			`<p>Regards,<br/>%s</p>`+
			`</div>`,
		studentName, studentID, human, schoolSignature,
	)

	return Content{Subject: SubjectAbsent, Text: text, HTML: html}
}

// RenderReport builds the covering note for a report attachment.
func RenderReport(studentName string) Content {
	text := fmt.Sprintf(
		"Dear Parent,\n\n"+
			"Please find attached the attendance report for %s.\n\n"+
			"Regards,\n%s\n",
		studentName, schoolSignature,
	)

	html := fmt.Sprintf(
		`<div style="font-family:Arial,Helvetica,sans-serif;font-size:14px;color:#212121">`+
			`<p>Dear Parent,</p>`+
			`<p>Please find attached the attendance report for <strong>%s</strong>.</p>`+
			`<p>Regards,<br/>%s</p>`+
			`</div>`,
		studentName, schoolSignature,
	)

	return Content{Subject: SubjectReport, Text: text, HTML: html}
}

// parseOrNow accepts RFC3339 timestamps. Empty input silently defaults to
// the current time; anything unparsable also defaults but logs a warning.
func parseOrNow(ctx context.Context, iso string) time.Time {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return time.Now()
	}

	when, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		logger.Warn(ctx, "unparsable timestamp, substituting current time",
			logger.KV("occurred_at", iso),
			logger.KV("error", err.Error()),
		)
		return time.Now()
	}

	return when
}
