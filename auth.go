package minipg

import (
	"context"
	"errors"

	"github.com/minipg/minipg/authsvc"
	"github.com/minipg/minipg/internal/wirebuf"
	"github.com/minipg/minipg/internal/wireproto"
	"github.com/minipg/minipg/pgerr"
)

// authStatus mirrors the wire-level AuthenticationOk/
// AuthenticationCleartextPassword status codes (spec.md §4.1).
type authStatus int32

const (
	authOK                authStatus = 0
	authClearTextPassword authStatus = 3
)

// AuthStrategy authenticates a connection. It writes whatever
// authentication-related frames the client expects and reads the
// client's reply; returning nil means the connection proceeds to
// AuthenticationOk.
type AuthStrategy func(ctx context.Context, w *wirebuf.Writer, r *wirebuf.Reader) error

// handleAuth runs srv.Auth, but only on the ssl_mode=Require path (spec.md
// §4.2): a direct v3 startup, or one resumed after a successful TLS
// upgrade, moves straight to AuthenticationOk. The cleartext-password
// exchange only happens after a client has already retried following a
// declined SSLRequest.
func (srv *Server) handleAuth(ctx context.Context, sslMode SSLMode, r *wirebuf.Reader, w *wirebuf.Writer) error {
	if sslMode != SSLModeRequire || srv.Auth == nil {
		return writeAuthStatus(w, authOK)
	}
	return srv.Auth(ctx, w, r)
}

// ClearTextPassword builds an AuthStrategy that requests a cleartext
// password and checks it against verifier. spec.md's default verifier is
// authsvc.AcceptAny, matching the "accepts any password" mandate.
func ClearTextPassword(verifier authsvc.Verifier) AuthStrategy {
	return func(ctx context.Context, w *wirebuf.Writer, r *wirebuf.Reader) error {
		if err := writeAuthStatus(w, authClearTextPassword); err != nil {
			return err
		}

		t, _, err := r.ReadTypedMsg()
		if err != nil {
			return err
		}
		if t != wireproto.ClientPassword {
			return errors.New("minipg: expected a password message")
		}

		password, err := r.GetString()
		if err != nil {
			return err
		}

		params := ClientParameters(ctx)
		user, _ := params.Get(ParamUsername)

		if !verifier.Verify(user, password) {
			if err := writeErrorResponse(w, pgerr.New(pgerr.CodeInvalidPassword, "password authentication failed")); err != nil {
				return err
			}
			return errors.New("minipg: invalid username/password")
		}

		return writeAuthStatus(w, authOK)
	}
}

func writeAuthStatus(w *wirebuf.Writer, status authStatus) error {
	w.Start(wireproto.ServerAuth)
	w.AddInt32(int32(status))
	return w.End()
}
