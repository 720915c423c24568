package node

import (
	"context"
	"fmt"
	"net"

	"github.com/backkem/triaka/pkg/aka"
	"github.com/backkem/triaka/pkg/discovery"
	"github.com/backkem/triaka/pkg/message"
	"github.com/backkem/triaka/pkg/peers"
	"github.com/backkem/triaka/pkg/timing"
	"github.com/backkem/triaka/pkg/transport"
	"github.com/pion/logging"
)

// Server is the trusted authority. It issues verifiers to Gateways and
// answers relayed logins.
//
// Requests are served one at a time in arrival order.
type Server struct {
	config    ServerConfig
	table     *peers.Table
	responder *aka.Responder
	listener  *transport.TCP
	timings   *timing.Recorder
	log       logging.LeveledLogger
}

// NewServer validates config and binds the listening socket.
func NewServer(config ServerConfig) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	s := &Server{
		config:  config,
		timings: timing.NewRecorder(timing.Config{Limit: config.TimingLimit, LoggerFactory: config.LoggerFactory}),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("aka-server")
	}

	table, err := peers.NewTable(peers.TableConfig{
		Store:         config.PeerStore,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, fmt.Errorf("load gateway table: %w", err)
	}
	s.table = table

	s.responder, err = aka.NewResponder(aka.ResponderConfig{
		ID:      []byte(config.ID),
		Table:   table,
		Deriver: config.Deriver,
		Nonces:  config.Nonces,
	})
	if err != nil {
		return nil, err
	}

	s.listener, err = transport.NewTCP(transport.TCPConfig{
		Net:           config.Net,
		ListenAddr:    config.ListenAddr,
		Handler:       s.handle,
		PollInterval:  config.PollInterval,
		IOTimeout:     config.IOTimeout,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins serving and, if configured, advertises the Server.
func (s *Server) Start() error {
	if err := s.listener.Start(); err != nil {
		return err
	}
	if err := advertise(s.config.Advertiser, discovery.ServiceTypeServer, s.config.ID, s.Addr()); err != nil {
		_ = s.listener.Stop()
		return err
	}
	if s.log != nil {
		s.log.Infof("%s listening on %s", s.config.ID, s.Addr())
	}
	return nil
}

// Stop withdraws the advertisement and stops serving.
func (s *Server) Stop() error {
	if a := s.config.Advertiser; a != nil {
		_ = a.Withdraw(discovery.ServiceTypeServer)
	}
	return s.listener.Stop()
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.listener.LocalAddr()
}

// ID returns the Server identity.
func (s *Server) ID() string {
	return s.config.ID
}

// Peers returns the table of registered Gateways.
func (s *Server) Peers() *peers.Table {
	return s.table
}

// Timings returns the per-request stopwatch.
func (s *Server) Timings() *timing.Recorder {
	return s.timings
}

func (s *Server) handle(_ context.Context, req *transport.Request) []byte {
	peer := req.RemoteAddr.String()
	frame, err := message.Parse(req.Data)
	if err != nil {
		return statusReply(s.log, peer, err)
	}

	switch frame.Tag {
	case message.TagRegister:
		return s.handleRegister(peer, req.Data)
	default:
		return s.handleLogin(peer, req.Data)
	}
}

func (s *Server) handleRegister(peer string, data []byte) []byte {
	s.timings.Start("register")
	defer func() { _ = s.timings.Stop("register") }()

	req, err := message.DecodeRegisterRequest(data)
	if err != nil {
		return statusReply(s.log, peer, err)
	}
	reply, err := s.responder.HandleRegister(peer, req)
	if err != nil {
		return statusReply(s.log, peer, err)
	}
	if s.log != nil {
		s.log.Infof("registered gateway %q at %s", req.ID, peers.HostKey(peer))
	}
	return reply.Encode()
}

func (s *Server) handleLogin(peer string, data []byte) []byte {
	s.timings.Start("login")
	defer func() { _ = s.timings.Stop("login") }()

	req, err := message.DecodeForwardRequest(data)
	if err != nil {
		return statusReply(s.log, peer, err)
	}

	login, err := aka.NewServerLogin(aka.ServerLoginConfig{
		Table:   s.table,
		Deriver: s.config.Deriver,
		Nonces:  s.config.Nonces,
		Clock:   s.config.Clock,
	})
	if err != nil {
		return statusReply(s.log, peer, err)
	}

	reply, err := login.Handle(peer, req)
	s.notify(LoginEvent{Peer: peer, State: login.State(), SessionKey: login.SessionKey(), Err: err})
	if err != nil {
		return statusReply(s.log, peer, err)
	}
	if s.log != nil {
		s.log.Infof("login relayed by %s confirmed", peer)
	}
	return reply.Encode()
}

func (s *Server) notify(ev LoginEvent) {
	if s.config.OnLogin != nil {
		s.config.OnLogin(ev)
	}
}

// advertise publishes a role on its bound port. A nil advertiser is a no-op.
func advertise(a *discovery.Advertiser, serviceType discovery.ServiceType, id string, addr net.Addr) error {
	if a == nil {
		return nil
	}
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("advertise %s: unexpected address %v", serviceType, addr)
	}
	return a.Advertise(serviceType, id, tcp.Port, discovery.RoleTXT{ID: id, ProtocolVersion: discovery.ProtocolVersion})
}
