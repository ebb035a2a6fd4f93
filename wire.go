// Package minipg is a minimal PostgreSQL-wire-protocol-compatible
// database server. It speaks the v3 startup handshake and the
// simple-query subset of the protocol; package pgexec executes the
// parsed statements against package catalog.
package minipg

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/minipg/minipg/authsvc"
	"github.com/minipg/minipg/catalog"
	"github.com/minipg/minipg/internal/wirebuf"
	"github.com/minipg/minipg/kvstore"
	"github.com/minipg/minipg/metrics"
	"github.com/minipg/minipg/parser"
)

// ListenAndServe starts a minipg server with default options (an
// in-memory catalog, no TLS, no authentication) bound to address. It is
// the one-line entry point for tests and simple use cases.
func ListenAndServe(address string) error {
	server, err := NewServer()
	if err != nil {
		return err
	}
	return server.ListenAndServe(address)
}

// NewServer constructs a Server, applying options in order. A catalog
// backed by kvstore.NewMemory() is provisioned unless WithCatalog
// supplies one.
func NewServer(options ...OptionFn) (*Server, error) {
	srv := &Server{
		logger: slog.Default(),
		closer: make(chan struct{}),
		parse:  parser.Parse,
		Auth:   ClearTextPassword(authsvc.AcceptAny{}),
	}

	for _, option := range options {
		option(srv)
	}

	if srv.catalog == nil {
		cat, err := catalog.New(context.Background(), kvstore.NewMemory())
		if err != nil {
			return nil, fmt.Errorf("minipg: provisioning default catalog: %w", err)
		}
		srv.catalog = cat
	}

	return srv, nil
}

// Server listens for and serves PostgreSQL wire protocol connections.
type Server struct {
	closing         atomic.Bool
	wg              sync.WaitGroup
	logger          *slog.Logger
	catalog         *catalog.Catalog
	metrics         *metrics.Collector
	parse           ParseFn
	Auth            AuthStrategy
	BufferedMsgSize int
	TLSConfig       *tls.Config
	Version         string
	closer          chan struct{}
}

// ListenAndServe opens a TCP listener on address and serves it.
func (srv *Server) ListenAndServe(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return srv.Serve(listener)
}

// Serve accepts and serves connections from listener until Close is
// called. The listener is closed when Serve returns.
func (srv *Server) Serve(listener net.Listener) error {
	defer srv.logger.Info("closing server")

	srv.logger.Info("serving incoming connections", slog.String("addr", listener.Addr().String()))
	srv.wg.Add(1)

	go func() {
		defer srv.wg.Done()
		<-srv.closer
		if err := listener.Close(); err != nil {
			srv.logger.Error("closing listener", slog.Any("err", err))
		}
	}()

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		go func() {
			if err := srv.serve(context.Background(), conn); err != nil {
				srv.logger.Error("connection terminated with an error", slog.Any("err", err))
			}
		}()
	}
}

func (srv *Server) serve(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	if srv.metrics != nil {
		srv.metrics.ConnectionOpened()
		defer srv.metrics.ConnectionClosed()
	}

	srv.logger.Debug("serving a new client connection")

	conn, version, sslMode, reader, err := srv.Handshake(conn)
	if err != nil {
		return err
	}

	writer := wirebuf.NewWriter(conn)
	ctx, err = srv.readClientParameters(ctx, reader, version, sslMode)
	if err != nil {
		return err
	}

	if err := srv.handleAuth(ctx, sslMode, reader, writer); err != nil {
		return err
	}

	srv.logger.Debug("connection authenticated, writing server parameters")

	ctx, err = srv.writeParameters(ctx, writer)
	if err != nil {
		return err
	}

	return srv.consumeCommands(ctx, conn, reader, writer)
}

// Close stops the server: it signals Serve's listener-closing goroutine,
// which ends the accept loop, and waits for that goroutine to finish.
// Connections already being served are not waited for or closed.
func (srv *Server) Close() error {
	if srv.closing.Load() {
		return nil
	}
	srv.closing.Store(true)
	close(srv.closer)
	srv.wg.Wait()
	return nil
}
