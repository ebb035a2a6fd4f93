package minipg

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/minipg/minipg/ast"
	"github.com/minipg/minipg/internal/wirebuf"
	"github.com/minipg/minipg/internal/wireproto"
	"github.com/minipg/minipg/parser"
	"github.com/minipg/minipg/pgerr"
	"github.com/minipg/minipg/pgexec"
)

// ParseFn parses a raw simple-query string into the statement list the
// executor consumes (spec.md §6's "Parsed-SQL interface"). The default,
// parser.Parse, is swappable via WithParseFn so a fuller grammar can be
// substituted without touching the executor.
type ParseFn func(ctx context.Context, sql string) ([]ast.Statement, error)

// consumeCommands runs the simple-query command loop for one connection
// until the client disconnects or sends Terminate.
func (srv *Server) consumeCommands(ctx context.Context, conn net.Conn, reader *wirebuf.Reader, writer *wirebuf.Writer) error {
	srv.logger.Debug("ready for query, consuming commands")

	if err := readyForQuery(writer, wireproto.StatusIdle); err != nil {
		return err
	}

	for {
		t, length, err := reader.ReadTypedMsg()
		if errors.Is(err, io.EOF) {
			return nil
		}

		var sizeErr *wirebuf.ErrMessageSizeExceeded
		if errors.As(err, &sizeErr) {
			if slurpErr := reader.Slurp(sizeErr.Size); slurpErr != nil {
				return slurpErr
			}
			if err := writeErrorResponse(writer, pgerr.Internal(sizeErr)); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		srv.logger.Debug("incoming command", slog.String("type", t.String()), slog.Int("length", length))

		switch t {
		case wireproto.ClientSimpleQuery:
			if err := srv.handleSimpleQuery(ctx, reader, writer); err != nil {
				return err
			}
		case wireproto.ClientTerminate:
			return nil
		default:
			werr := pgerr.FeatureNotSupported("unsupported message type")
			if err := writeErrorResponse(writer, werr); err != nil {
				return err
			}
			return errors.New("minipg: unsupported client message type, closing connection")
		}
	}
}

func (srv *Server) handleSimpleQuery(ctx context.Context, reader *wirebuf.Reader, writer *wirebuf.Writer) error {
	query, err := reader.GetString()
	if err != nil {
		return err
	}

	srv.logger.Debug("simple query", slog.String("query", query))

	if strings.TrimSpace(query) == "" {
		if err := writeEmptyQueryResponse(writer); err != nil {
			return err
		}
		return readyForQuery(writer, wireproto.StatusIdle)
	}

	statements, perr := srv.parse(ctx, query)
	if perr != nil {
		if err := writeErrorResponse(writer, toSyntaxError(perr)); err != nil {
			return err
		}
		return readyForQuery(writer, wireproto.StatusIdle)
	}

	sess := newSession(writer)
	for _, stmt := range statements {
		start := time.Now()
		event, werr := pgexec.Execute(ctx, srv.catalog, stmt, query)
		if werr != nil {
			if srv.metrics != nil {
				srv.metrics.StatementFailed(string(werr.Code))
			}
			if err := sess.SendError(werr); err != nil {
				return err
			}
			if werr.Severity == pgerr.LevelFatal {
				return werr
			}
			return readyForQuery(writer, wireproto.StatusIdle)
		}

		if srv.metrics != nil {
			srv.metrics.StatementExecuted(statementKind(stmt), time.Since(start))
			switch e := event.(type) {
			case *pgexec.RecordsInserted:
				srv.metrics.RowsInserted(e.Count)
			case *pgexec.RowsSelected:
				srv.metrics.RowsReturned(len(e.Rows))
			}
		}

		if err := sess.Send(event); err != nil {
			return err
		}
	}

	return readyForQuery(writer, wireproto.StatusIdle)
}

// toSyntaxError renders a parser error as a *pgerr.WireError, using the
// offending token from *parser.SyntaxError when the parser produced one.
func toSyntaxError(err error) *pgerr.WireError {
	var syn *parser.SyntaxError
	if errors.As(err, &syn) && syn.Token != "" {
		return pgerr.SyntaxError(syn.Token)
	}
	return pgerr.SyntaxError(err.Error())
}

func statementKind(stmt ast.Statement) string {
	switch stmt.(type) {
	case *ast.CreateSchema:
		return "create_schema"
	case *ast.DropSchema:
		return "drop_schema"
	case *ast.CreateTable:
		return "create_table"
	case *ast.DropTable:
		return "drop_table"
	case *ast.Insert:
		return "insert"
	case *ast.Select:
		return "select"
	default:
		return "unknown"
	}
}
