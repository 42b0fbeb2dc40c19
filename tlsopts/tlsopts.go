// Package tlsopts defines a connection-level TLS interface a mgr.Connection
// can be handed off to once a handshake is wanted, without mgr or tcpip ever
// importing crypto/tls directly. It owns only the collaborator boundary and
// one concrete implementation backed by crypto/tls.
package tlsopts

import (
	"context"
	"crypto/tls"
	"net"

	liberr "github.com/sabouaram/embednet/errors"
	"github.com/sabouaram/embednet/certificates/cipher"
	"github.com/sabouaram/embednet/certificates/curves"
	"github.com/sabouaram/embednet/certificates/tlsversion"
)

// Conn is the TLS trait: Init binds the implementation to a raw transport,
// Handshake drives the handshake to completion, Send/Recv move application
// data once established, Pending reports buffered-but-unread bytes, and
// Free/CtxInit/CtxFree bracket the implementation's lifetime the way the
// built-in stack's other collaborators (Driver, vfs.FS) do.
type Conn interface {
	Init(raw net.Conn, cfg *Options, isServer bool) error
	Handshake(ctx context.Context) error
	Send(buf []byte) (int, liberr.Error)
	Recv(buf []byte) (int, error)
	Pending() int
	Free() error
	CtxInit() context.Context
	CtxFree()
}

// Options configures a Conn implementation's Init. MinVersion/MaxVersion
// default to TLS 1.2 / TLS 1.3 when left at tlsversion.VersionUnknown.
type Options struct {
	CertFile   string
	KeyFile    string
	CAFile     string
	ServerName string
	MinVersion tlsversion.Version
	MaxVersion tlsversion.Version
	Ciphers    []cipher.Cipher
	Curves     []curves.Curves
	ClientAuth bool
}

func (o *Options) toStdlib(isServer bool) (*tls.Config, error) {
	cfg := &tls.Config{ServerName: o.ServerName}

	minV, maxV := o.MinVersion, o.MaxVersion
	if minV == tlsversion.VersionUnknown {
		minV = tlsversion.VersionTLS12
	}
	if maxV == tlsversion.VersionUnknown {
		maxV = tlsversion.VersionTLS13
	}
	cfg.MinVersion = uint16(minV)
	cfg.MaxVersion = uint16(maxV)

	for _, c := range o.Ciphers {
		cfg.CipherSuites = append(cfg.CipherSuites, uint16(c))
	}
	for _, c := range o.Curves {
		cfg.CurvePreferences = append(cfg.CurvePreferences, tls.CurveID(c))
	}

	if o.CertFile != "" && o.KeyFile != "" {
		certPair, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{certPair}
	}

	if isServer && o.ClientAuth {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, nil
}
