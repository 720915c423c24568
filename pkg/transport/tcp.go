// Package transport carries one request and one reply per TCP connection.
//
// Listeners accept connections on a single loop: each connection is fully
// read, handled, answered and closed before the next one is accepted.
// Accept polls with a bounded deadline so Stop is observed promptly.
// Messages are framed by message.StreamReader and message.StreamWriter.
//
// Sockets come from a pion transport.Net, so tests can substitute a
// virtual network.
package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/backkem/triaka/pkg/message"
	"github.com/pion/logging"
	"github.com/pion/transport/v3"
	"github.com/pion/transport/v3/stdnet"
)

// Defaults for TCPConfig.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultIOTimeout    = 30 * time.Second
)

// Request is one inbound request.
type Request struct {
	// Data is the request without framing.
	Data []byte

	// RemoteAddr is the caller's address.
	RemoteAddr net.Addr
}

// Handler answers a request. The returned bytes are written back as the
// single reply; a nil reply closes the connection without answering.
// ctx is cancelled when the transport stops.
type Handler func(ctx context.Context, req *Request) []byte

// TCPConfig configures the TCP listener.
type TCPConfig struct {
	// Net provides sockets. If nil, the host network stack is used.
	Net transport.Net

	// ListenAddr is the address to listen on (e.g., ":4542").
	// Empty selects an ephemeral port on all interfaces.
	ListenAddr string

	// Handler is called for each request. Required.
	Handler Handler

	// PollInterval bounds each Accept wait. Default: 100ms.
	PollInterval time.Duration

	// IOTimeout bounds reading the request and writing the reply.
	// Default: 30s.
	IOTimeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// TCP is a request/reply listener.
type TCP struct {
	listener     transport.TCPListener
	handler      Handler
	pollInterval time.Duration
	ioTimeout    time.Duration
	log          logging.LeveledLogger

	ctx     context.Context
	cancel  context.CancelFunc
	closeCh chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewTCP creates a listener bound to config.ListenAddr.
func NewTCP(config TCPConfig) (*TCP, error) {
	if config.Handler == nil {
		return nil, ErrNoHandler
	}

	n := config.Net
	if n == nil {
		var err error
		if n, err = stdnet.NewNet(); err != nil {
			return nil, err
		}
	}

	addr := config.ListenAddr
	if addr == "" {
		addr = ":0"
	}
	laddr, err := n.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Join(ErrInvalidAddress, err)
	}
	listener, err := n.ListenTCP("tcp", laddr)
	if err != nil {
		return nil, err
	}

	t := &TCP{
		listener:     listener,
		handler:      config.Handler,
		pollInterval: config.PollInterval,
		ioTimeout:    config.IOTimeout,
		closeCh:      make(chan struct{}),
	}
	if t.pollInterval <= 0 {
		t.pollInterval = DefaultPollInterval
	}
	if t.ioTimeout <= 0 {
		t.ioTimeout = DefaultIOTimeout
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())

	if config.LoggerFactory != nil {
		t.log = config.LoggerFactory.NewLogger("transport-tcp")
	}

	return t, nil
}

// Start begins accepting connections.
func (t *TCP) Start() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.started {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.started = true
	t.mu.Unlock()

	if t.log != nil {
		t.log.Infof("listening on %s", t.listener.Addr())
	}

	t.wg.Add(1)
	go t.acceptLoop()

	return nil
}

// Stop closes the listener and waits for the accept loop, including a
// request in progress, to finish.
func (t *TCP) Stop() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.closed = true
	t.mu.Unlock()

	if t.log != nil {
		t.log.Info("stopping TCP listener")
	}

	close(t.closeCh)
	t.cancel()
	err := t.listener.Close()
	t.wg.Wait()
	return err
}

// LocalAddr returns the address the listener is bound to.
func (t *TCP) LocalAddr() net.Addr {
	return t.listener.Addr()
}

func (t *TCP) acceptLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.closeCh:
			return
		default:
		}

		if err := t.listener.SetDeadline(time.Now().Add(t.pollInterval)); err != nil {
			select {
			case <-t.closeCh:
				return
			default:
			}
		}

		conn, err := t.listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			select {
			case <-t.closeCh:
				return
			default:
				if t.log != nil {
					t.log.Warnf("accept failed: %v", err)
				}
				continue
			}
		}

		t.serve(conn)
	}
}

// serve handles the single request of conn and closes it.
func (t *TCP) serve(conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(t.ioTimeout)); err != nil && t.log != nil {
		t.log.Debugf("set deadline failed: %v", err)
	}

	data, err := message.NewStreamReader(conn).Read()
	if err != nil {
		if t.log != nil {
			t.log.Debugf("read from %s failed: %v", conn.RemoteAddr(), err)
		}
		return
	}

	if t.log != nil {
		t.log.Tracef("request from %s: %q", conn.RemoteAddr(), data)
	}

	reply := t.handler(t.ctx, &Request{Data: data, RemoteAddr: conn.RemoteAddr()})
	if reply == nil {
		return
	}

	if _, err := message.NewStreamWriter(conn).Write(reply); err != nil && t.log != nil {
		t.log.Debugf("reply to %s failed: %v", conn.RemoteAddr(), err)
	}
}
