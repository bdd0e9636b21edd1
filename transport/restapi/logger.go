package restapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/satori/uuid"
	"github.com/segmentio/encoding/json"
	"go.uber.org/multierr"

	"github.com/sahyadri/presensi/pkg/logger"
	"github.com/sahyadri/presensi/pkg/respbuilder"
)

// requestLogger assigns a trace id, injects it for both logger and response
// builder, and emits one access log line per request.
func requestLogger(skipFunc func(r *http.Request) bool, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if skipFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		var globalErr error
		t1 := time.Now().UTC()
		ctx := r.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		traceID := uuid.NewV4().String()

		logTracer := logger.Tracer{
			RemoteAddr: r.RemoteAddr,
			AppTraceID: traceID,
		}

		responseTracer := respbuilder.Tracer{
			RemoteAddr: r.RemoteAddr,
			AppTraceID: traceID,
		}

		// Inject logger and response tracer at same time
		ctx = logger.Inject(ctx, logTracer)
		ctx = respbuilder.Inject(ctx, responseTracer)
		r = r.WithContext(ctx)

		reqBody := make([]byte, 0)
		if r.Body != nil {
			defer func() {
				if _err := r.Body.Close(); _err != nil {
					_err = fmt.Errorf("cannot close request body: %w", _err)
					globalErr = multierr.Append(globalErr, _err)
				}
			}()

			var err error
			reqBody, err = io.ReadAll(r.Body)
			if err != nil {
				globalErr = multierr.Append(globalErr, fmt.Errorf("error read request body: %w", err))
				reqBody = []byte(``)
			}

			r.Body = io.NopCloser(bytes.NewBuffer(reqBody))
		}

		var reqBodyObj interface{}
		if _err := json.Unmarshal(reqBody, &reqBodyObj); _err != nil {
			reqBodyObj = string(reqBody)
		}

		// continue serve, and record the response
		rec := httptest.NewRecorder()
		next.ServeHTTP(rec, r)

		respBody := rec.Body.Bytes()

		var respBodyObj interface{}
		if _err := json.Unmarshal(respBody, &respBodyObj); _err != nil {
			respBodyObj = string(respBody)
		}

		for k, v := range rec.Header() {
			w.Header()[k] = v
		}

		w.WriteHeader(rec.Code)
		if _, _err := bytes.NewReader(respBody).WriteTo(w); _err != nil {
			globalErr = multierr.Append(globalErr, fmt.Errorf("error write response body: %w", _err))
		}

		errStr := ""
		if globalErr != nil {
			errStr = globalErr.Error()
		}

		logger.Access(ctx, logger.AccessLogData{
			Path:        r.RequestURI,
			ReqBody:     reqBodyObj,
			RespBody:    respBodyObj,
			Error:       errStr,
			ElapsedTime: time.Since(t1).Milliseconds(),
		})
	}
}
