package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/naveenspark/hogwarts/internal/validate"
	"github.com/naveenspark/hogwarts/pkg/client"
)

// Exit codes for the hogwarts binary.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// response is the JSON envelope of every command in --format json.
type response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *responseError `json:"error,omitempty"`
}

type responseError struct {
	Message string                `json:"message"`
	Status  int                   `json:"status,omitempty"` // HTTP status when the API refused
	Fields  []validate.FieldError `json:"fields,omitempty"`
}

// output writes command results as text or JSON.
type output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

func newOutput(format string, w, errW io.Writer) output {
	if errW == nil {
		errW = w
	}
	return output{format: format, w: w, errW: errW}
}

// textWriter is handed to text renderers.
type textWriter struct{ w io.Writer }

func (t textWriter) printf(format string, args ...any) {
	fmt.Fprintf(t.w, format, args...) //nolint:errcheck // terminal output
}

func (t textWriter) println(s string) {
	fmt.Fprintln(t.w, s) //nolint:errcheck // terminal output
}

// emit writes data as a JSON envelope, or calls text in text mode.
func (o output) emit(data any, text func(w textWriter)) error {
	if o.format == "json" {
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(response{Status: "ok", Data: data})
	}
	text(textWriter{w: o.w})
	return nil
}

// failure reports err. JSON goes to stdout so scripts can parse it; text goes
// to stderr.
func (o output) failure(err error) {
	re := &responseError{Message: client.Message(err)}
	var verr *validate.Errors
	if errors.As(err, &verr) {
		re.Fields = verr.Fields
	}
	var herr *client.HTTPError
	if errors.As(err, &herr) {
		re.Status = herr.StatusCode
	}

	if o.format == "json" {
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		enc.Encode(response{Status: "error", Error: re}) //nolint:errcheck // nowhere left to report
		return
	}
	if len(re.Fields) > 0 {
		for _, f := range re.Fields {
			fmt.Fprintf(o.errW, "error: %s: %s\n", f.Field, f.Message) //nolint:errcheck // terminal output
		}
		return
	}
	fmt.Fprintf(o.errW, "error: %s\n", re.Message) //nolint:errcheck // terminal output
}
