package node

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/backkem/triaka/pkg/aka"
	"github.com/backkem/triaka/pkg/discovery"
	"github.com/backkem/triaka/pkg/message"
	"github.com/backkem/triaka/pkg/peers"
	"github.com/backkem/triaka/pkg/timing"
	"github.com/backkem/triaka/pkg/transport"
	"github.com/pion/logging"
)

// Gateway sits between Clients and the Server. It registers Clients
// locally and relays their logins to the Server, re-masking every value
// on the way.
//
// A Gateway must hold credentials from the Server before Start. Requests
// are served one at a time; a relayed login holds the listener until the
// Server answers or IOTimeout expires.
type Gateway struct {
	config    GatewayConfig
	table     *peers.Table
	responder *aka.Responder
	listener  *transport.TCP
	dialer    *transport.Dialer
	timings   *timing.Recorder
	log       logging.LeveledLogger

	mu         sync.RWMutex
	creds      *aka.Credentials
	serverAddr string
}

// NewGateway validates config and binds the listening socket.
func NewGateway(config GatewayConfig) (*Gateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	g := &Gateway{
		config:     config,
		creds:      config.Credentials,
		serverAddr: config.ServerAddr,
		timings:    timing.NewRecorder(timing.Config{Limit: config.TimingLimit, LoggerFactory: config.LoggerFactory}),
	}
	if config.LoggerFactory != nil {
		g.log = config.LoggerFactory.NewLogger("aka-gateway")
	}

	table, err := peers.NewTable(peers.TableConfig{
		Store:         config.PeerStore,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, fmt.Errorf("load client table: %w", err)
	}
	g.table = table

	g.responder, err = aka.NewResponder(aka.ResponderConfig{
		ID:      []byte(config.ID),
		Table:   table,
		Deriver: config.Deriver,
		Nonces:  config.Nonces,
	})
	if err != nil {
		return nil, err
	}

	g.dialer, err = transport.NewDialer(config.Net, config.IOTimeout)
	if err != nil {
		return nil, err
	}

	g.listener, err = transport.NewTCP(transport.TCPConfig{
		Net:           config.Net,
		ListenAddr:    config.ListenAddr,
		Handler:       g.handle,
		PollInterval:  config.PollInterval,
		IOTimeout:     config.IOTimeout,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Register obtains a verifier from the Server, discovering it first when
// no address is configured. Earlier credentials are replaced.
func (g *Gateway) Register(ctx context.Context) error {
	g.timings.Start("register")
	defer func() { _ = g.timings.Stop("register") }()

	addr, err := g.upstream(ctx)
	if err != nil {
		return err
	}

	creds, err := register(ctx, g.dialer, addr, g.config.ID, g.config.Nonces)
	if err != nil {
		return fmt.Errorf("register with server %s: %w", addr, err)
	}

	g.mu.Lock()
	g.creds = creds
	g.mu.Unlock()

	if g.log != nil {
		g.log.Infof("%s registered with server %s", g.config.ID, addr)
	}
	if g.config.OnRegistered != nil {
		g.config.OnRegistered(creds)
	}
	return nil
}

// Start begins serving Clients and, if configured, advertises the Gateway.
// It returns ErrNotRegistered when the Gateway holds no credentials.
func (g *Gateway) Start() error {
	if !g.Credentials().Registered() {
		return ErrNotRegistered
	}
	if err := g.listener.Start(); err != nil {
		return err
	}
	if err := advertise(g.config.Advertiser, discovery.ServiceTypeGateway, g.config.ID, g.Addr()); err != nil {
		_ = g.listener.Stop()
		return err
	}
	if g.log != nil {
		g.log.Infof("%s listening on %s", g.config.ID, g.Addr())
	}
	return nil
}

// Stop withdraws the advertisement and stops serving. A relayed login in
// progress is cancelled.
func (g *Gateway) Stop() error {
	if a := g.config.Advertiser; a != nil {
		_ = a.Withdraw(discovery.ServiceTypeGateway)
	}
	return g.listener.Stop()
}

// Addr returns the listening address.
func (g *Gateway) Addr() net.Addr {
	return g.listener.LocalAddr()
}

// ID returns the Gateway identity.
func (g *Gateway) ID() string {
	return g.config.ID
}

// Credentials returns the credentials obtained from the Server, or nil.
func (g *Gateway) Credentials() *aka.Credentials {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.creds
}

// ServerAddr returns the Server address in use, or "" before it is known.
func (g *Gateway) ServerAddr() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.serverAddr
}

// Peers returns the table of registered Clients.
func (g *Gateway) Peers() *peers.Table {
	return g.table
}

// Timings returns the stopwatch of registrations and relayed logins.
func (g *Gateway) Timings() *timing.Recorder {
	return g.timings
}

// upstream returns the Server address, resolving and caching it once.
func (g *Gateway) upstream(ctx context.Context) (string, error) {
	if addr := g.ServerAddr(); addr != "" {
		return addr, nil
	}
	addr, err := resolveUpstream(ctx, "", g.config.Resolver, discovery.ServiceTypeServer, g.config.ServerInstance)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	g.serverAddr = addr
	g.mu.Unlock()

	if g.log != nil {
		g.log.Infof("discovered server at %s", addr)
	}
	return addr, nil
}

func (g *Gateway) handle(ctx context.Context, req *transport.Request) []byte {
	peer := req.RemoteAddr.String()
	frame, err := message.Parse(req.Data)
	if err != nil {
		return statusReply(g.log, peer, err)
	}

	switch frame.Tag {
	case message.TagRegister:
		return g.handleRegister(peer, req.Data)
	default:
		return g.handleLogin(ctx, peer, req.Data)
	}
}

func (g *Gateway) handleRegister(peer string, data []byte) []byte {
	req, err := message.DecodeRegisterRequest(data)
	if err != nil {
		return statusReply(g.log, peer, err)
	}
	reply, err := g.responder.HandleRegister(peer, req)
	if err != nil {
		return statusReply(g.log, peer, err)
	}
	if g.log != nil {
		g.log.Infof("registered client %q at %s", req.ID, peers.HostKey(peer))
	}
	return reply.Encode()
}

func (g *Gateway) handleLogin(ctx context.Context, peer string, data []byte) []byte {
	g.timings.Start("login")
	defer func() { _ = g.timings.Stop("login") }()

	req, err := message.DecodeLoginRequest(data)
	if err != nil {
		return statusReply(g.log, peer, err)
	}

	login, err := aka.NewGatewayLogin(aka.GatewayLoginConfig{
		Credentials: g.Credentials(),
		Table:       g.table,
		Clock:       g.config.Clock,
	})
	if err != nil {
		return statusReply(g.log, peer, err)
	}

	reply, err := g.relay(ctx, peer, login, req)
	g.notify(LoginEvent{Peer: peer, State: login.State(), SessionKey: login.SessionKey(), Err: err})
	return reply
}

// relay runs steps 2 and 4 around the Server round-trip. The returned
// bytes are the reply for the Client; err describes a failed attempt.
func (g *Gateway) relay(ctx context.Context, peer string, login *aka.GatewayLogin, req *message.LoginRequest) ([]byte, error) {
	fwd, err := login.HandleClient(peer, req)
	if err != nil {
		return statusReply(g.log, peer, err), err
	}

	addr, err := g.upstream(ctx)
	if err == nil {
		var raw []byte
		if raw, err = g.dialer.Exchange(ctx, addr, fwd.Encode()); err == nil {
			return g.finish(peer, login, raw)
		}
	}

	login.Abort()
	status := upstreamStatus(err)
	if g.log != nil {
		g.log.Warnf("login from %s: server unavailable: %v", peer, err)
	}
	return status.Encode(), err
}

func (g *Gateway) finish(peer string, login *aka.GatewayLogin, raw []byte) ([]byte, error) {
	if len(raw) == 0 || message.Tag(raw[0]) != message.TagLogin {
		login.Reject()
		err := message.ParseStatus(raw)
		if g.log != nil {
			g.log.Infof("login from %s: server answered %q", peer, raw)
		}
		return message.ServerError(raw), err
	}

	srv, err := message.DecodeServerLoginReply(raw)
	if err != nil {
		login.Reject()
		if g.log != nil {
			g.log.Warnf("login from %s: malformed server reply: %v", peer, err)
		}
		return message.StatusServerProtocolError.Encode(), fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}

	reply, err := login.HandleServer(srv)
	if err != nil {
		return statusReply(g.log, peer, err), err
	}
	if g.log != nil {
		g.log.Infof("login from %s confirmed by server", peer)
	}
	return reply.Encode(), nil
}

func (g *Gateway) notify(ev LoginEvent) {
	if g.config.OnLogin != nil {
		g.config.OnLogin(ev)
	}
}
