package minipg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/minipg/minipg/internal/wireproto"
)

// writeRawStartup writes a v3-shaped startup frame: a length prefix, the
// version, the ordered key/value parameters, and the terminating NUL.
func writeRawStartup(t *testing.T, w io.Writer, version uint32, params ...KV) {
	t.Helper()

	var body bytes.Buffer
	require.NoError(t, binary.Write(&body, binary.BigEndian, version))
	for _, kv := range params {
		body.WriteString(kv.Key)
		body.WriteByte(0)
		body.WriteString(kv.Value)
		body.WriteByte(0)
	}
	body.WriteByte(0)

	var frame bytes.Buffer
	require.NoError(t, binary.Write(&frame, binary.BigEndian, uint32(body.Len()+4)))
	frame.Write(body.Bytes())

	_, err := w.Write(frame.Bytes())
	require.NoError(t, err)
}

// writeRawVersionOnly writes a pseudo-startup frame carrying just a
// version sentinel, as used by SSLRequest, GSSENCRequest, CancelRequest,
// and the legacy v1/v2 protocols.
func writeRawVersionOnly(t *testing.T, w io.Writer, version uint32) {
	t.Helper()

	var frame bytes.Buffer
	require.NoError(t, binary.Write(&frame, binary.BigEndian, uint32(8)))
	require.NoError(t, binary.Write(&frame, binary.BigEndian, version))

	_, err := w.Write(frame.Bytes())
	require.NoError(t, err)
}

func newTestHandshakeServer(t *testing.T) *Server {
	t.Helper()
	return &Server{logger: slogt.New(t)}
}

// TestHandshakeDirectV3AuthenticationOkOnly is spec.md §8 scenario 1: a
// v3 startup over a non-TLS socket negotiates ssl_mode=Disable with no
// password exchange at all.
func TestHandshakeDirectV3AuthenticationOkOnly(t *testing.T) {
	srv := newTestHandshakeServer(t)
	client, server := net.Pipe()
	defer client.Close()

	params := []KV{{Key: ParamUsername, Value: "postgres"}, {Key: ParamClientEncoding, Value: "UTF8"}}
	go writeRawStartup(t, client, uint32(wireproto.VersionV3), params...)

	conn, version, sslMode, _, err := srv.Handshake(server)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, wireproto.VersionV3, version)
	require.Equal(t, SSLModeDisable, sslMode)
}

// TestHandshakeSSLDeclinedRecordsRequireMode is spec.md §8 scenario 2: an
// SSLRequest against a server with no TLS configured gets a one-byte 'N'
// and is expected to retry with a plain v3 startup, which Handshake must
// report as ssl_mode=Require so the cleartext password exchange runs.
func TestHandshakeSSLDeclinedRecordsRequireMode(t *testing.T) {
	srv := newTestHandshakeServer(t)
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		writeRawVersionOnly(t, client, uint32(wireproto.VersionSSLReq))

		notice := make([]byte, 1)
		_, err := io.ReadFull(client, notice)
		require.NoError(t, err)
		require.Equal(t, byte('N'), notice[0])

		writeRawStartup(t, client, uint32(wireproto.VersionV3), KV{Key: ParamUsername, Value: "postgres"})
	}()

	conn, version, sslMode, _, err := srv.Handshake(server)
	<-done
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, wireproto.VersionV3, version)
	require.Equal(t, SSLModeRequire, sslMode)
}

func TestHandshakeRejectsGSSEncRequest(t *testing.T) {
	srv := newTestHandshakeServer(t)
	client, server := net.Pipe()
	defer client.Close()

	go writeRawVersionOnly(t, client, uint32(wireproto.VersionGSSEncReq))

	_, _, _, _, err := srv.Handshake(server)
	require.True(t, errors.Is(err, ErrUnsupportedRequest))
}

func TestHandshakeRejectsLegacyAndCancelVersions(t *testing.T) {
	versions := []wireproto.Version{wireproto.VersionV1, wireproto.VersionV2, wireproto.VersionCancel}

	for _, version := range versions {
		srv := newTestHandshakeServer(t)
		client, server := net.Pipe()

		go writeRawVersionOnly(t, client, uint32(version))

		_, _, _, _, err := srv.Handshake(server)
		require.True(t, errors.Is(err, ErrUnsupportedVersion), "version %d", version)

		client.Close()
		server.Close()
	}
}

func TestHandshakeRejectsUnrecognizedVersion(t *testing.T) {
	srv := newTestHandshakeServer(t)
	client, server := net.Pipe()
	defer client.Close()

	go writeRawVersionOnly(t, client, 999999)

	_, _, _, _, err := srv.Handshake(server)
	require.True(t, errors.Is(err, ErrUnrecognizedVersion))
}
