package minipg

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/minipg/minipg/catalog"
	"github.com/minipg/minipg/internal/wirebuf"
	"github.com/minipg/minipg/kvstore"
)

func getInt16(t *testing.T, r *wirebuf.Reader) int16 {
	t.Helper()
	b, err := r.GetBytes(2)
	require.NoError(t, err)
	return int16(binary.BigEndian.Uint16(b))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat, err := catalog.New(context.Background(), kvstore.NewMemory())
	require.NoError(t, err)

	srv, err := NewServer(WithLogger(slogt.New(t)), WithCatalog(cat))
	require.NoError(t, err)
	return srv
}

// sendQuery writes a SimpleQuery frame carrying sql into buf.
func sendQuery(t *testing.T, w *wirebuf.Writer, sql string) {
	t.Helper()
	w.Start('Q')
	w.AddString(sql)
	w.AddNullTerminate()
	require.NoError(t, w.End())
}

func drainUntilReady(t *testing.T, r *wirebuf.Reader) []byte {
	t.Helper()
	var tags []byte
	for {
		ty, _, err := r.ReadTypedMsg()
		require.NoError(t, err)
		tags = append(tags, byte(ty))
		if byte(ty) == 'Z' {
			return tags
		}
	}
}

func TestHandleSimpleQueryCreateSchemaAndTable(t *testing.T) {
	srv := newTestServer(t)

	clientToServer := bytes.NewBuffer(nil)
	serverToClient := bytes.NewBuffer(nil)
	in := wirebuf.NewWriter(clientToServer)
	reader := wirebuf.NewReader(clientToServer, wirebuf.DefaultBufferSize)
	writer := wirebuf.NewWriter(serverToClient)

	sendQuery(t, in, "CREATE SCHEMA s; CREATE TABLE s.t (c1 INTEGER)")
	require.NoError(t, srv.handleSimpleQuery(context.Background(), reader, writer))

	out := wirebuf.NewReader(serverToClient, wirebuf.DefaultBufferSize)
	tags := drainUntilReady(t, out)
	require.Equal(t, []byte{'C', 'C', 'Z'}, tags)
}

func TestHandleSimpleQueryInsertAndSelectProjection(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, runQuery(t, srv, ctx, "CREATE SCHEMA s"))
	require.NoError(t, runQuery(t, srv, ctx, "CREATE TABLE s.t (c1 INTEGER, c2 INTEGER, c3 INTEGER)"))
	require.NoError(t, runQuery(t, srv, ctx, "INSERT INTO s.t VALUES (1, 2, 3)"))

	serverToClient := bytes.NewBuffer(nil)
	clientToServer := bytes.NewBuffer(nil)
	in := wirebuf.NewWriter(clientToServer)
	reader := wirebuf.NewReader(clientToServer, wirebuf.DefaultBufferSize)
	writer := wirebuf.NewWriter(serverToClient)

	sendQuery(t, in, "SELECT c3, c1, c2 FROM s.t")
	require.NoError(t, srv.handleSimpleQuery(ctx, reader, writer))

	out := wirebuf.NewReader(serverToClient, wirebuf.DefaultBufferSize)

	ty, _, err := out.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte('T'), byte(ty))

	count := getInt16(t, out)
	require.Equal(t, int16(3), count)

	names := make([]string, 3)
	for i := range names {
		name, err := out.GetString()
		require.NoError(t, err)
		names[i] = name
		_, err = out.GetBytes(18) // tableOID(4) + attnum(2) + typeOID(4) + width(2) + modifier(4) + format(2)
		require.NoError(t, err)
	}
	require.Equal(t, []string{"c3", "c1", "c2"}, names)

	ty, _, err = out.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte('D'), byte(ty))
	require.Equal(t, int16(3), getInt16(t, out))

	values := make([]string, 3)
	for i := range values {
		n, err := out.GetInt32()
		require.NoError(t, err)
		b, err := out.GetBytes(int(n))
		require.NoError(t, err)
		values[i] = string(b)
	}
	require.Equal(t, []string{"3", "1", "2"}, values)
}

// runQuery executes a single statement through a fresh in-memory wire
// round-trip and discards the response, only checking for a connection
// error.
func runQuery(t *testing.T, srv *Server, ctx context.Context, sql string) error {
	t.Helper()
	clientToServer := bytes.NewBuffer(nil)
	serverToClient := bytes.NewBuffer(nil)
	in := wirebuf.NewWriter(clientToServer)
	reader := wirebuf.NewReader(clientToServer, wirebuf.DefaultBufferSize)
	writer := wirebuf.NewWriter(serverToClient)

	sendQuery(t, in, sql)
	return srv.handleSimpleQuery(ctx, reader, writer)
}

func TestConsumeCommandsTerminateClosesCleanly(t *testing.T) {
	srv := newTestServer(t)

	clientToServer := bytes.NewBuffer(nil)
	serverToClient := bytes.NewBuffer(nil)
	in := wirebuf.NewWriter(clientToServer)
	reader := wirebuf.NewReader(clientToServer, wirebuf.DefaultBufferSize)
	writer := wirebuf.NewWriter(serverToClient)

	in.Start('X')
	require.NoError(t, in.End())

	require.NoError(t, srv.consumeCommands(context.Background(), nil, reader, writer))
}
