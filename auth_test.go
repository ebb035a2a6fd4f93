package minipg

import (
	"bytes"
	"context"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/minipg/minipg/internal/wirebuf"
)

// TestHandleAuthDisableSkipsConfiguredStrategy asserts the ssl_mode=Disable
// path (a direct v3 startup) moves straight to AuthenticationOk without
// ever invoking a configured AuthStrategy (spec.md §4.2).
func TestHandleAuthDisableSkipsConfiguredStrategy(t *testing.T) {
	input := bytes.NewBuffer(nil)
	sink := bytes.NewBuffer(nil)

	reader := wirebuf.NewReader(input, wirebuf.DefaultBufferSize)
	writer := wirebuf.NewWriter(sink)

	srv := &Server{
		logger: slogt.New(t),
		Auth: func(context.Context, *wirebuf.Writer, *wirebuf.Reader) error {
			t.Fatal("AuthStrategy must not run on the ssl_mode=Disable path")
			return nil
		},
	}
	err := srv.handleAuth(context.Background(), SSLModeDisable, reader, writer)
	require.NoError(t, err)

	result := wirebuf.NewReader(sink, wirebuf.DefaultBufferSize)
	ty, _, err := result.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte('R'), byte(ty))

	status, err := result.GetUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(authOK), status)
}

// TestHandleAuthRequireDefaultAcceptsAny asserts that on the
// ssl_mode=Require path with no AuthStrategy configured, the connection
// still defaults to unconditional acceptance (spec.md §1: credential
// validation is out of scope — the core accepts any password).
func TestHandleAuthRequireDefaultAcceptsAny(t *testing.T) {
	input := bytes.NewBuffer(nil)
	sink := bytes.NewBuffer(nil)

	reader := wirebuf.NewReader(input, wirebuf.DefaultBufferSize)
	writer := wirebuf.NewWriter(sink)

	srv := &Server{logger: slogt.New(t)}
	err := srv.handleAuth(context.Background(), SSLModeRequire, reader, writer)
	require.NoError(t, err)

	result := wirebuf.NewReader(sink, wirebuf.DefaultBufferSize)
	ty, _, err := result.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte('R'), byte(ty))

	status, err := result.GetUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(authOK), status)
}

func TestClearTextPasswordAccepts(t *testing.T) {
	const password = "hunter2"

	input := bytes.NewBuffer(nil)
	incoming := wirebuf.NewWriter(input)
	incoming.Start('p')
	incoming.AddString(password)
	incoming.AddNullTerminate()
	require.NoError(t, incoming.End())

	sink := bytes.NewBuffer(nil)
	reader := wirebuf.NewReader(input, wirebuf.DefaultBufferSize)
	writer := wirebuf.NewWriter(sink)

	ctx := setConnectionParameters(context.Background(), ConnectionParameters{
		Params:  Parameters{{Key: ParamUsername, Value: "alice"}},
		SSLMode: SSLModeRequire,
	})

	strategy := ClearTextPassword(verifierFunc(func(user, pass string) bool {
		return user == "alice" && pass == password
	}))
	require.NoError(t, strategy(ctx, writer, reader))

	result := wirebuf.NewReader(sink, wirebuf.DefaultBufferSize)
	ty, _, err := result.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte('R'), byte(ty))
	status, err := result.GetUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(authClearTextPassword), status)

	ty, _, err = result.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte('R'), byte(ty))
	status, err = result.GetUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(authOK), status)
}

func TestClearTextPasswordRejects(t *testing.T) {
	input := bytes.NewBuffer(nil)
	incoming := wirebuf.NewWriter(input)
	incoming.Start('p')
	incoming.AddString("wrong")
	incoming.AddNullTerminate()
	require.NoError(t, incoming.End())

	sink := bytes.NewBuffer(nil)
	reader := wirebuf.NewReader(input, wirebuf.DefaultBufferSize)
	writer := wirebuf.NewWriter(sink)

	ctx := setConnectionParameters(context.Background(), ConnectionParameters{
		Params:  Parameters{{Key: ParamUsername, Value: "alice"}},
		SSLMode: SSLModeRequire,
	})

	strict := ClearTextPassword(verifierFunc(func(string, string) bool { return false }))
	err := strict(ctx, writer, reader)
	require.Error(t, err)
}

type verifierFunc func(user, password string) bool

func (f verifierFunc) Verify(user, password string) bool { return f(user, password) }
