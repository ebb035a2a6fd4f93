package minipg

import (
	"github.com/minipg/minipg/internal/wirebuf"
	"github.com/minipg/minipg/internal/wireproto"
	"github.com/minipg/minipg/pgerr"
)

// errField identifies one field of an ErrorResponse message.
// http://www.postgresql.org/docs/current/static/protocol-error-fields.html
type errField byte

const (
	errFieldSeverity   errField = 'S'
	errFieldMsgPrimary errField = 'M'
	errFieldSQLState   errField = 'C'
)

// writeErrorResponse renders err as a single ErrorResponse frame. Any
// error not already a *pgerr.WireError is flattened into an internal
// XX000/FATAL error (spec.md §7's system-error bucket).
func writeErrorResponse(w *wirebuf.Writer, err error) error {
	desc := flatten(err)

	w.Start(wireproto.ServerErrorResponse)

	w.AddByte(byte(errFieldSeverity))
	w.AddString(string(desc.Severity))
	w.AddNullTerminate()

	w.AddByte(byte(errFieldSQLState))
	w.AddString(string(desc.Code))
	w.AddNullTerminate()

	w.AddByte(byte(errFieldMsgPrimary))
	w.AddString(desc.Message)
	w.AddNullTerminate()

	w.AddNullTerminate()
	return w.End()
}

func flatten(err error) *pgerr.WireError {
	if werr, ok := err.(*pgerr.WireError); ok {
		return werr
	}
	return pgerr.Internal(err)
}
