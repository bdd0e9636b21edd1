package respbuilder

type ErrKind int64

const (
	ErrUnhandled ErrKind = iota + 1
	ErrValidation
	ErrRateLimited
	ErrResourceNotFound
)

type Reason struct {
	Code    string
	Message string
}

func (r *Reason) Error() string {
	return r.Message
}

var ReasonMap = map[ErrKind]Reason{
	ErrUnhandled:        {Code: "01", Message: "unhandled error"},
	ErrValidation:       {Code: "02", Message: "error validation"},
	ErrRateLimited:      {Code: "03", Message: "too many requests"},
	ErrResourceNotFound: {Code: "04", Message: "resource not found"},
}

// ErrorEntity contain code, message, debug (*if applicable) and trace id.
type ErrorEntity struct {
	Code    string `json:"error_code"`        // to handle by FE
	Message string `json:"error_description"` // to handle by FE (string version of the error code)
	Debug   string `json:"debug,omitempty"`   // technical error
	TraceID string `json:"trace_id"`
}

// HTTPError follow Facebook error response object:
// https://developers.facebook.com/docs/graph-api/using-graph-api/error-handling/
type HTTPError struct {
	Err ErrorEntity `json:"error"`
}

func (e HTTPError) Error() string {
	return e.Err.Message + ": " + e.Err.Debug
}

// HTTPSuccess success response always wrap in data key.
type HTTPSuccess struct {
	TraceID string      `json:"trace_id"`
	Data    interface{} `json:"data"`
}
