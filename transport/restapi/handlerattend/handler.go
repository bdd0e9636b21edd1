package handlerattend

import (
	"errors"
	"net/http"

	"github.com/segmentio/encoding/json"
	"go.opentelemetry.io/otel/trace"

	"github.com/sahyadri/presensi/internal/svc/attendsvc"
	"github.com/sahyadri/presensi/pkg/respbuilder"
	"github.com/sahyadri/presensi/pkg/tracer"
	"github.com/sahyadri/presensi/pkg/validator"
)

type HandlerConfig struct {
	AttendService attendsvc.Service `validate:"required"`
}

type Handler struct {
	Config HandlerConfig
}

func NewHandler(cfg HandlerConfig) (*Handler, error) {
	err := validator.Validate(cfg)
	if err != nil {
		return nil, err
	}

	return &Handler{Config: cfg}, nil
}

type SendNotificationReq struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	ParentEmail string `json:"parent_email"`
	Status      string `json:"status"`
	OccurredAt  string `json:"occurred_at,omitempty"`
}

type SendBatchReq struct {
	Records []SendNotificationReq `json:"records"`
}

type SendReportReq struct {
	StudentName string   `json:"student_name"`
	ParentEmail string   `json:"parent_email"`
	ReportLines []string `json:"report_lines"`
}

func toRecord(req SendNotificationReq) attendsvc.AttendanceRecord {
	return attendsvc.AttendanceRecord{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		ParentEmail: req.ParentEmail,
		Status:      attendsvc.Status(req.Status),
		OccurredAt:  req.OccurredAt,
	}
}

// isValidationErr reports whether err is a caller mistake rather than a
// downstream failure.
func isValidationErr(err error) bool {
	return errors.Is(err, attendsvc.ErrEmptyBatch) ||
		errors.Is(err, attendsvc.ErrMissingField) ||
		errors.Is(err, attendsvc.ErrInvalidStudentID) ||
		errors.Is(err, attendsvc.ErrInvalidEmail)
}

func (h *Handler) SendNotification() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var span trace.Span
		ctx, span = tracer.StartSpan(ctx, "handlerattend.SendNotification")
		defer span.End()

		var reqBody SendNotificationReq
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		err := dec.Decode(&reqBody)
		if err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		out, err := h.Config.AttendService.SendOne(ctx, attendsvc.InputSendOne{
			Record: toRecord(reqBody),
		})
		if err != nil {
			if isValidationErr(err) {
				resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
				respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
				return
			}

			resp := respbuilder.Error(ctx, respbuilder.ErrUnhandled, err)
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, resp)
			return
		}

		resp := respbuilder.Success(ctx, out)
		respbuilder.WriteJSON(http.StatusOK, w, r, resp)
	}
}

func (h *Handler) SendBatch() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var span trace.Span
		ctx, span = tracer.StartSpan(ctx, "handlerattend.SendBatch")
		defer span.End()

		var reqBody SendBatchReq
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		err := dec.Decode(&reqBody)
		if err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		records := make([]attendsvc.AttendanceRecord, 0, len(reqBody.Records))
		for _, rec := range reqBody.Records {
			records = append(records, toRecord(rec))
		}

		out, err := h.Config.AttendService.SendBatch(ctx, attendsvc.InputSendBatch{
			Records: records,
		})
		if err != nil {
			if isValidationErr(err) {
				resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
				respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
				return
			}

			resp := respbuilder.Error(ctx, respbuilder.ErrUnhandled, err)
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, resp)
			return
		}

		resp := respbuilder.Success(ctx, out)
		respbuilder.WriteJSON(http.StatusOK, w, r, resp)
	}
}

func (h *Handler) SendReport() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var span trace.Span
		ctx, span = tracer.StartSpan(ctx, "handlerattend.SendReport")
		defer span.End()

		var reqBody SendReportReq
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		err := dec.Decode(&reqBody)
		if err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		out, err := h.Config.AttendService.SendWithReport(ctx, attendsvc.InputSendReport{
			StudentName: reqBody.StudentName,
			ParentEmail: reqBody.ParentEmail,
			ReportLines: reqBody.ReportLines,
		})
		if err != nil {
			if isValidationErr(err) {
				resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
				respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
				return
			}

			resp := respbuilder.Error(ctx, respbuilder.ErrUnhandled, err)
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, resp)
			return
		}

		resp := respbuilder.Success(ctx, out)
		respbuilder.WriteJSON(http.StatusOK, w, r, resp)
	}
}
