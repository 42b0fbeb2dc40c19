package tlsopts

import (
	"context"
	"crypto/tls"
	"net"

	liberr "github.com/sabouaram/embednet/errors"
)

// StdlibConn implements Conn over crypto/tls.Conn, the only TLS record-layer
// collaborator this module ships: the record layer itself is out of scope,
// so this type exists purely to make the Conn trait itself testable.
type StdlibConn struct {
	inner  *tls.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// NewStdlibConn allocates an unbound StdlibConn; call Init before Handshake.
func NewStdlibConn() *StdlibConn { return &StdlibConn{} }

func (s *StdlibConn) Init(raw net.Conn, cfg *Options, isServer bool) error {
	stdCfg, err := cfg.toStdlib(isServer)
	if err != nil {
		return err
	}
	if isServer {
		s.inner = tls.Server(raw, stdCfg)
	} else {
		s.inner = tls.Client(raw, stdCfg)
	}
	return nil
}

func (s *StdlibConn) Handshake(ctx context.Context) error {
	return s.inner.HandshakeContext(ctx)
}

func (s *StdlibConn) Send(buf []byte) (int, liberr.Error) {
	n, err := s.inner.Write(buf)
	if err != nil {
		return n, liberr.New(liberr.MinPkgTLS, "tls write: %s", err.Error())
	}
	return n, nil
}

func (s *StdlibConn) Recv(buf []byte) (int, error) {
	return s.inner.Read(buf)
}

// Pending always reports 0: crypto/tls buffers internally but exposes no
// count of bytes available without a network read, unlike the embedded TLS
// libraries this Conn trait is modeled on.
func (s *StdlibConn) Pending() int { return 0 }

func (s *StdlibConn) Free() error {
	if s.inner == nil {
		return nil
	}
	return s.inner.Close()
}

// CtxInit lazily creates the cancellable context Handshake runs under, so
// CtxFree has something to cancel even if the caller never built one.
func (s *StdlibConn) CtxInit() context.Context {
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	return s.ctx
}

func (s *StdlibConn) CtxFree() {
	if s.cancel != nil {
		s.cancel()
	}
}
