package socket

import (
	"errors"

	"github.com/corey/trustcheck/internal/domain/records"
	"github.com/corey/trustcheck/internal/ports"
)

// Error codes carried in Response.Code so clients can recover the error
// kind with errors.Is. The message stays in Response.Error.
const (
	CodeEmptyQuery       = "empty_query"
	CodeSuperseded       = "superseded"
	CodeLookupFailed     = "lookup_failed"
	CodeMalformedImport  = "malformed_import"
	CodeDuplicateID      = "duplicate_id"
	CodeInvalidLevel     = "invalid_level"
	CodeSnapshotNotFound = "snapshot_not_found"
)

var errorCodes = []struct {
	code string
	err  error
}{
	{CodeEmptyQuery, ports.ErrEmptyQuery},
	{CodeSuperseded, ports.ErrSuperseded},
	{CodeLookupFailed, ports.ErrLookupFailed},
	{CodeMalformedImport, records.ErrMalformedImport},
	{CodeDuplicateID, records.ErrDuplicateID},
	{CodeInvalidLevel, records.ErrInvalidLevel},
	{CodeSnapshotNotFound, ports.ErrSnapshotNotFound},
}

// codeFor returns the wire code for err, or "" for errors without one.
func codeFor(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ""
}

func errorFor(code string) error {
	for _, ec := range errorCodes {
		if ec.code == code {
			return ec.err
		}
	}
	return nil
}

// errorResponse builds a failed response for err.
func errorResponse(id string, err error) Response {
	return Response{ID: id, Error: err.Error(), Code: codeFor(err)}
}

// RemoteError is a daemon-side failure. It unwraps to the matching
// sentinel when the response carried a known code.
type RemoteError struct {
	Message string
	Code    string
}

func (e *RemoteError) Error() string { return "server error: " + e.Message }

func (e *RemoteError) Unwrap() error { return errorFor(e.Code) }
