package minipg

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"

	"github.com/minipg/minipg/internal/wirebuf"
	"github.com/minipg/minipg/internal/wireproto"
)

// Sentinel handshake errors, returned by classifyVersion for the startup
// versions this server never serves (spec.md §4.2, listener.rs:85-101).
var (
	ErrUnsupportedRequest  = errors.New("minipg: unsupported request")
	ErrUnsupportedVersion  = errors.New("minipg: unsupported protocol version")
	ErrUnrecognizedVersion = errors.New("minipg: unrecognized protocol version")
)

// classifyVersion rejects every startup version this dialect does not
// speak. GSSENC encryption and the legacy v1/v2 protocols are never
// supported; a CancelRequest's pseudo-version is rejected the same way
// since this server's simple-query statements run synchronously to
// completion and there is nothing in flight to cancel.
func classifyVersion(version wireproto.Version) error {
	switch version {
	case wireproto.VersionV3:
		return nil
	case wireproto.VersionGSSEncReq:
		return ErrUnsupportedRequest
	case wireproto.VersionV1, wireproto.VersionV2, wireproto.VersionCancel:
		return ErrUnsupportedVersion
	default:
		return ErrUnrecognizedVersion
	}
}

// Handshake drives the startup state machine (spec.md §4.2): read the
// version sentinel, optionally upgrade to TLS on an SSLRequest, and
// reject any version this server does not serve. It returns the
// (possibly upgraded) connection, the negotiated ssl_mode, and a
// buffered reader positioned to read the next frame.
func (srv *Server) Handshake(conn net.Conn) (_ net.Conn, version wireproto.Version, sslMode SSLMode, reader *wirebuf.Reader, err error) {
	reader = wirebuf.NewReader(conn, srv.BufferedMsgSize)
	version, err = srv.readVersion(reader)
	if err != nil {
		return conn, version, SSLModeDisable, reader, err
	}

	conn, reader, version, sslMode, err = srv.potentialConnUpgrade(conn, reader, version)
	if err != nil {
		return conn, version, sslMode, reader, err
	}

	if err := classifyVersion(version); err != nil {
		return conn, version, sslMode, reader, err
	}

	return conn, version, sslMode, reader, nil
}

func (srv *Server) readVersion(reader *wirebuf.Reader) (wireproto.Version, error) {
	if _, err := reader.ReadUntypedMsg(); err != nil {
		return 0, err
	}
	version, err := reader.GetUint32()
	if err != nil {
		return 0, err
	}
	return wireproto.Version(version), nil
}

// readyForQuery emits the frame that ends a command cycle (spec.md §4.1).
func readyForQuery(writer *wirebuf.Writer, status wireproto.ServerStatus) error {
	writer.Start(wireproto.ServerReady)
	writer.AddByte(byte(status))
	return writer.End()
}

// readClientParameters reads the ordered key/value startup parameters
// the client sends after the version sentinel, preserving order and
// duplicates per spec.md §3, and stores them alongside the negotiated
// protocol version and ssl_mode as this connection's ConnectionParameters.
func (srv *Server) readClientParameters(ctx context.Context, reader *wirebuf.Reader, version wireproto.Version, sslMode SSLMode) (context.Context, error) {
	var params Parameters

	for {
		key, err := reader.GetString()
		if err != nil {
			return ctx, err
		}
		if key == "" {
			break
		}

		value, err := reader.GetString()
		if err != nil {
			return ctx, err
		}

		srv.logger.Debug("client parameter", slog.String("key", key), slog.String("value", value))
		params = append(params, KV{Key: key, Value: value})
	}

	cp := ConnectionParameters{ProtocolVersion: version, Params: params, SSLMode: sslMode}
	return setConnectionParameters(ctx, cp), nil
}

// writeParameters announces the server's own parameters (spec.md §4.1's
// ParameterStatus frames) after authentication succeeds.
// https://www.postgresql.org/docs/current/libpq-status.html
func (srv *Server) writeParameters(ctx context.Context, writer *wirebuf.Writer) (context.Context, error) {
	params := Parameters{
		{Key: ParamServerEncoding, Value: "UTF8"},
		{Key: ParamClientEncoding, Value: "UTF8"},
		{Key: ParamIsSuperuser, Value: "off"},
		{Key: ParamSessionAuthorization, Value: AuthenticatedUsername(ctx)},
	}

	version := srv.Version
	if version == "" {
		version = "15.0 (minipg)"
	}
	params = append(params, KV{Key: ParamServerVersion, Value: version})

	for _, kv := range params {
		srv.logger.Debug("server parameter", slog.String("key", kv.Key), slog.String("value", kv.Value))

		writer.Start(wireproto.ServerParameterStatus)
		writer.AddString(kv.Key)
		writer.AddNullTerminate()
		writer.AddString(kv.Value)
		writer.AddNullTerminate()
		if err := writer.End(); err != nil {
			return ctx, err
		}
	}

	return setServerParameters(ctx, params), nil
}

// potentialConnUpgrade upgrades the connection to TLS when the client
// sends an SSLRequest and the server has certificates configured;
// otherwise it replies with the SSL-unsupported Notice byte, records
// ssl_mode as Require, and proceeds in the clear expecting a cleartext
// password exchange (spec.md §4.2, §8 scenario 2).
func (srv *Server) potentialConnUpgrade(conn net.Conn, reader *wirebuf.Reader, version wireproto.Version) (net.Conn, *wirebuf.Reader, wireproto.Version, SSLMode, error) {
	if version != wireproto.VersionSSLReq {
		return conn, reader, version, SSLModeDisable, nil
	}

	srv.logger.Debug("attempting to upgrade the client to a TLS connection")

	if srv.TLSConfig == nil || len(srv.TLSConfig.Certificates) == 0 {
		return srv.sslUnsupported(conn, reader, version)
	}

	if _, err := conn.Write(sslSupported); err != nil {
		return conn, reader, version, SSLModeDisable, err
	}

	conn = tls.Server(conn, srv.TLSConfig)
	reader = wirebuf.NewReader(conn, srv.BufferedMsgSize)

	version, err := srv.readVersion(reader)
	if err != nil {
		return conn, reader, version, SSLModeDisable, err
	}

	srv.logger.Debug("connection upgraded to TLS")
	return conn, reader, version, SSLModeDisable, nil
}

// sslUnsupported declines a TLS upgrade and re-reads the startup frame
// the client is expected to resend in the clear. classifyVersion rejects
// that frame if it isn't a plain v3 startup.
func (srv *Server) sslUnsupported(conn net.Conn, reader *wirebuf.Reader, version wireproto.Version) (net.Conn, *wirebuf.Reader, wireproto.Version, SSLMode, error) {
	if _, err := conn.Write(sslUnsupported); err != nil {
		return conn, reader, version, SSLModeRequire, err
	}

	version, err := srv.readVersion(reader)
	if err != nil {
		return conn, reader, version, SSLModeRequire, err
	}

	return conn, reader, version, SSLModeRequire, nil
}
