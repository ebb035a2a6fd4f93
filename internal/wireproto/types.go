// Package wireproto defines the byte-level constants of the PostgreSQL
// frontend/backend protocol version 3 (simple-query subset) that minipg
// speaks: client/server message tags and the startup version sentinels.
package wireproto

// ClientMessage represents a client message tag, the single byte that
// precedes a frame's length once the handshake has completed.
type ClientMessage byte

// ServerMessage represents a server message tag written before a frame's
// length.
type ServerMessage byte

// http://www.postgresql.org/docs/current/protocol-message-formats.html
const (
	ClientPassword    ClientMessage = 'p'
	ClientSimpleQuery ClientMessage = 'Q'
	ClientTerminate   ClientMessage = 'X'

	ServerAuth            ServerMessage = 'R'
	ServerCommandComplete ServerMessage = 'C'
	ServerDataRow         ServerMessage = 'D'
	ServerEmptyQuery      ServerMessage = 'I'
	ServerErrorResponse   ServerMessage = 'E'
	ServerNoticeResponse  ServerMessage = 'N'
	ServerParameterStatus ServerMessage = 'S'
	ServerReady           ServerMessage = 'Z'
	ServerRowDescription  ServerMessage = 'T'
)

func (m ClientMessage) String() string {
	switch m {
	case ClientPassword:
		return "Password"
	case ClientSimpleQuery:
		return "SimpleQuery"
	case ClientTerminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

func (m ServerMessage) String() string {
	switch m {
	case ServerAuth:
		return "Auth"
	case ServerCommandComplete:
		return "CommandComplete"
	case ServerDataRow:
		return "DataRow"
	case ServerEmptyQuery:
		return "EmptyQuery"
	case ServerErrorResponse:
		return "ErrorResponse"
	case ServerNoticeResponse:
		return "NoticeResponse"
	case ServerParameterStatus:
		return "ParameterStatus"
	case ServerReady:
		return "Ready"
	case ServerRowDescription:
		return "RowDescription"
	default:
		return "Unknown"
	}
}

// Version represents the protocol version (or pseudo-version, for SSL/GSS
// negotiation and cancellation) sent as the first int32 of a startup frame.
type Version uint32

// Startup version sentinels. See spec.md §4.1.
const (
	VersionV3        Version = 196608
	VersionSSLReq    Version = 80877103
	VersionGSSEncReq Version = 80877104
	VersionCancel    Version = 80877102
	VersionV2        Version = 131072
	VersionV1        Version = 65536
)

// ServerStatus is the single byte sent with ReadyForQuery indicating the
// backend transaction status. minipg has no transactions, so it is always
// StatusIdle.
type ServerStatus byte

const (
	StatusIdle ServerStatus = 'I'
)
