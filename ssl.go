package minipg

// sslIdentifier is the single-byte reply to an SSLRequest startup frame.
type sslIdentifier []byte

var (
	sslSupported   sslIdentifier = []byte{'S'}
	sslUnsupported sslIdentifier = []byte{'N'}
)
