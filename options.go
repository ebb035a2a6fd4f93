package minipg

import (
	"crypto/tls"
	"log/slog"

	"github.com/minipg/minipg/catalog"
	"github.com/minipg/minipg/metrics"
)

// OptionFn follows the teacher's options pattern: a functional option
// applied to a freshly constructed Server inside NewServer.
type OptionFn func(*Server)

// WithLogger overrides the server's structured logger (defaults to
// slog.Default()).
func WithLogger(logger *slog.Logger) OptionFn {
	return func(srv *Server) { srv.logger = logger }
}

// WithAuth installs an authentication strategy. The default, if this
// option is never applied, accepts any password (spec.md §1's stated
// out-of-scope credential validation).
func WithAuth(auth AuthStrategy) OptionFn {
	return func(srv *Server) { srv.Auth = auth }
}

// WithTLSConfig enables TLS upgrade on SSLRequest using the given
// configuration.
func WithTLSConfig(cfg *tls.Config) OptionFn {
	return func(srv *Server) { srv.TLSConfig = cfg }
}

// WithParseFn overrides the SQL parser (defaults to parser.Parse).
func WithParseFn(fn ParseFn) OptionFn {
	return func(srv *Server) { srv.parse = fn }
}

// WithMetrics attaches a metrics.Collector that every connection and
// executed statement reports to.
func WithMetrics(collector *metrics.Collector) OptionFn {
	return func(srv *Server) { srv.metrics = collector }
}

// WithCatalog overrides the catalog.Catalog backing the server (defaults
// to one wrapping kvstore.NewMemory()).
func WithCatalog(cat *catalog.Catalog) OptionFn {
	return func(srv *Server) { srv.catalog = cat }
}

// WithVersion sets the server_version startup parameter announced to
// clients after authentication.
func WithVersion(version string) OptionFn {
	return func(srv *Server) { srv.Version = version }
}
