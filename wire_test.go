package minipg

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"testing"

	_ "github.com/lib/pq"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/minipg/minipg/catalog"
	"github.com/minipg/minipg/kvstore"
)

// tListenAndServe opens a TCP listener on an unallocated local port, serves
// it with server, and returns the listener address. The server is closed
// when the test ends.
func tListenAndServe(t *testing.T, server *Server) *net.TCPAddr {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, server.Close())
	})

	go server.Serve(listener) //nolint:errcheck
	return listener.Addr().(*net.TCPAddr)
}

func TestListenAndServeLibPQRoundTrip(t *testing.T) {
	cat, err := catalog.New(context.Background(), kvstore.NewMemory())
	require.NoError(t, err)

	srv, err := NewServer(WithLogger(slogt.New(t)), WithCatalog(cat))
	require.NoError(t, err)

	address := tListenAndServe(t, srv)

	connstr := fmt.Sprintf("host=%s port=%d sslmode=disable user=alice password=anything", address.IP, address.Port)
	conn, err := sql.Open("postgres", connstr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec("CREATE SCHEMA s")
	require.NoError(t, err)

	_, err = conn.Exec("CREATE TABLE s.t (id INTEGER, name VARCHAR(10))")
	require.NoError(t, err)

	_, err = conn.Exec("INSERT INTO s.t VALUES (1, 'ada')")
	require.NoError(t, err)

	rows, err := conn.Query("SELECT name, id FROM s.t")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var name string
	var id int
	require.NoError(t, rows.Scan(&name, &id))
	require.Equal(t, "ada", name)
	require.Equal(t, 1, id)
	require.False(t, rows.Next())
	require.NoError(t, rows.Err())
}

func TestListenAndServeLibPQSyntaxErrorKeepsConnectionOpen(t *testing.T) {
	cat, err := catalog.New(context.Background(), kvstore.NewMemory())
	require.NoError(t, err)

	srv, err := NewServer(WithLogger(slogt.New(t)), WithCatalog(cat))
	require.NoError(t, err)

	address := tListenAndServe(t, srv)

	connstr := fmt.Sprintf("host=%s port=%d sslmode=disable user=alice password=anything", address.IP, address.Port)
	conn, err := sql.Open("postgres", connstr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec("NOT A STATEMENT")
	require.Error(t, err)

	// The connection survives a domain-level syntax error: a following
	// well-formed statement still succeeds.
	_, err = conn.Exec("CREATE SCHEMA recoverable")
	require.NoError(t, err)
}
