package minipg

import (
	"fmt"

	"github.com/minipg/minipg/catalog"
	"github.com/minipg/minipg/internal/wirebuf"
	"github.com/minipg/minipg/internal/wireproto"
	"github.com/minipg/minipg/pgexec"
)

// session is the root package's implementation of pgexec.Sender: it owns
// the per-connection wire writer and renders each QueryEvent as the
// RowDescription/DataRow/CommandComplete frames spec.md §4.1 mandates,
// or an ErrorResponse for a failed statement.
type session struct {
	writer *wirebuf.Writer
}

func newSession(w *wirebuf.Writer) *session {
	return &session{writer: w}
}

var _ pgexec.Sender = (*session)(nil)

func (s *session) Send(event pgexec.QueryEvent) error {
	switch e := event.(type) {
	case *pgexec.SchemaCreated:
		return s.complete("CREATE SCHEMA")
	case *pgexec.SchemaDropped:
		return s.complete("DROP SCHEMA")
	case *pgexec.TableCreated:
		return s.complete("CREATE TABLE")
	case *pgexec.TableDropped:
		return s.complete("DROP TABLE")
	case *pgexec.RecordsInserted:
		return s.complete(fmt.Sprintf("INSERT 0 %d", e.Count))
	case *pgexec.RowsSelected:
		return s.sendRows(e)
	default:
		return fmt.Errorf("minipg: unknown query event %T", event)
	}
}

func (s *session) SendError(err error) error {
	return writeErrorResponse(s.writer, err)
}

func (s *session) complete(tag string) error {
	s.writer.Start(wireproto.ServerCommandComplete)
	s.writer.AddString(tag)
	s.writer.AddNullTerminate()
	return s.writer.End()
}

func (s *session) sendRows(result *pgexec.RowsSelected) error {
	if err := s.rowDescription(result.Columns); err != nil {
		return err
	}
	for _, row := range result.Rows {
		if err := s.dataRow(row); err != nil {
			return err
		}
	}
	return s.complete(fmt.Sprintf("SELECT %d", len(result.Rows)))
}

// rowDescription writes the RowDescription frame describing cols, using
// text format (format code 0) for every field: spec.md's DataRow is
// always textual, so there is no binary encoder to wire in here.
// https://www.postgresql.org/docs/current/protocol-message-formats.html#PROTOCOL-MESSAGE-FORMATS-ROWDESCRIPTION
func (s *session) rowDescription(cols []catalog.ColumnDefinition) error {
	s.writer.Start(wireproto.ServerRowDescription)
	s.writer.AddInt16(int16(len(cols)))

	for i, col := range cols {
		s.writer.AddString(col.Name)
		s.writer.AddNullTerminate()
		s.writer.AddInt32(0)                   // table OID: none, this isn't a catalog-backed relation lookup
		s.writer.AddInt16(int16(i + 1))         // column attribute number
		s.writer.AddInt32(int32(col.Type.OID()))
		s.writer.AddInt16(col.Type.Width())
		s.writer.AddInt32(-1) // type modifier: none
		s.writer.AddInt16(0)  // format code: text
	}

	return s.writer.End()
}

// dataRow writes one row's cells as length-prefixed text values; a nil
// cell slot would be NULL, but spec.md's row model has no NULL concept
// so every cell here is always present.
// https://www.postgresql.org/docs/current/protocol-message-formats.html#PROTOCOL-MESSAGE-FORMATS-DATAROW
func (s *session) dataRow(values []string) error {
	s.writer.Start(wireproto.ServerDataRow)
	s.writer.AddInt16(int16(len(values)))
	for _, v := range values {
		s.writer.AddInt32(int32(len(v)))
		s.writer.AddBytes([]byte(v))
	}
	return s.writer.End()
}

// writeEmptyQueryResponse implements the EmptyQueryResponse path for a
// query string with no statements (spec.md §4.1).
func writeEmptyQueryResponse(w *wirebuf.Writer) error {
	w.Start(wireproto.ServerEmptyQuery)
	return w.End()
}
