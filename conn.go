package minipg

import (
	"context"

	"github.com/minipg/minipg/internal/wireproto"
)

type ctxKey int

const (
	ctxConnParameters ctxKey = iota
	ctxServerParameters
)

// KV is one (key, value) connection-parameter pair. spec.md §3 requires
// startup_params to be an ordered list preserving duplicates, which rules
// out a map (Go map iteration order is unspecified and would silently
// drop duplicate keys).
type KV struct {
	Key   string
	Value string
}

// Parameters is the ordered connection-parameter list read during
// startup (spec.md §3's "ConnectionParameters").
type Parameters []KV

// SSLMode records whether the connection fell back to a cleartext
// password exchange after a declined SSLRequest (spec.md §3's
// "ssl_mode: {Disable, Require}"). A direct v3 startup, and a v3 startup
// resumed after a successful TLS upgrade, are both SSLModeDisable — only
// the SSLRequest-declined-then-retry path is SSLModeRequire.
type SSLMode int

const (
	SSLModeDisable SSLMode = iota
	SSLModeRequire
)

func (m SSLMode) String() string {
	if m == SSLModeRequire {
		return "require"
	}
	return "disable"
}

// ConnectionParameters is the handshake-level connection tuple spec.md §3
// names: the negotiated protocol version, the ordered startup parameter
// list, and the negotiated ssl_mode.
type ConnectionParameters struct {
	ProtocolVersion wireproto.Version
	Params          Parameters
	SSLMode         SSLMode
}

// Get returns the value of the last occurrence of key, mirroring how a
// real backend treats a repeated startup parameter (last write wins for
// behavior, but earlier occurrences are still visible to the caller via
// the full Parameters slice).
func (p Parameters) Get(key string) (string, bool) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Key == key {
			return p[i].Value, true
		}
	}
	return "", false
}

// Well-known startup/server parameter keys.
const (
	ParamUsername             = "user"
	ParamDatabase             = "database"
	ParamApplicationName      = "application_name"
	ParamServerEncoding       = "server_encoding"
	ParamClientEncoding       = "client_encoding"
	ParamIsSuperuser          = "is_superuser"
	ParamSessionAuthorization = "session_authorization"
	ParamServerVersion        = "server_version"
)

func setConnectionParameters(ctx context.Context, cp ConnectionParameters) context.Context {
	return context.WithValue(ctx, ctxConnParameters, cp)
}

// ConnParameters returns the full handshake-negotiated connection tuple
// (protocol version, startup parameters, ssl_mode) for ctx.
func ConnParameters(ctx context.Context) ConnectionParameters {
	val := ctx.Value(ctxConnParameters)
	if val == nil {
		return ConnectionParameters{}
	}
	return val.(ConnectionParameters)
}

// ClientParameters returns the startup parameters the client sent during
// the handshake, in the order they arrived.
func ClientParameters(ctx context.Context) Parameters {
	return ConnParameters(ctx).Params
}

func setServerParameters(ctx context.Context, params Parameters) context.Context {
	return context.WithValue(ctx, ctxServerParameters, params)
}

// ServerParameters returns the parameters the server announced back to
// the client after authentication.
func ServerParameters(ctx context.Context) Parameters {
	val := ctx.Value(ctxServerParameters)
	if val == nil {
		return nil
	}
	return val.(Parameters)
}

// AuthenticatedUsername returns the "user" startup parameter, the
// identity ClearTextPassword authenticated against.
func AuthenticatedUsername(ctx context.Context) string {
	v, _ := ClientParameters(ctx).Get(ParamUsername)
	return v
}
