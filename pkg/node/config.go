package node

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/backkem/triaka/pkg/aka"
	"github.com/backkem/triaka/pkg/crypto"
	"github.com/backkem/triaka/pkg/discovery"
	"github.com/backkem/triaka/pkg/peers"
	"github.com/backkem/triaka/pkg/transport"
	"github.com/pion/logging"
	piontransport "github.com/pion/transport/v3"
)

// Default ports.
const (
	DefaultServerPort  = 3874
	DefaultGatewayPort = 4542
)

// DefaultTimingLimit caps the request intervals a listening role keeps.
const DefaultTimingLimit = 1024

// Default upstream addresses used when neither an address nor a resolver
// is configured.
var (
	DefaultServerAddr  = net.JoinHostPort("localhost", strconv.Itoa(DefaultServerPort))
	DefaultGatewayAddr = net.JoinHostPort("127.0.0.1", strconv.Itoa(DefaultGatewayPort))
)

// LoginEvent describes the outcome of one login attempt seen by a role.
type LoginEvent struct {
	// Peer is the caller's address.
	Peer string

	// State is the terminal state of the attempt.
	State aka.State

	// SessionKey is the agreed key when State is aka.StateConfirmed.
	SessionKey []byte

	// Err is the reason for a failed attempt.
	Err error
}

// ServerConfig holds the configuration of a Server.
type ServerConfig struct {
	// ID is the Server identity (default: aka.DefaultServerID).
	ID string

	// ListenAddr is the address to listen on (default: ":3874").
	ListenAddr string

	// PeerStore persists the Gateway table. If nil, entries are kept in
	// memory only.
	PeerStore peers.Store

	// Deriver, Nonces and Clock feed the handshake. Nil selects the
	// reference curve, crypto/rand and time.Now.
	Deriver *crypto.Deriver
	Nonces  crypto.NonceSource
	Clock   aka.Clock

	// Net provides sockets. If nil, the host network stack is used.
	Net piontransport.Net

	// PollInterval bounds each accept wait (default: 100ms).
	PollInterval time.Duration

	// IOTimeout bounds socket reads and writes (default: 30s).
	IOTimeout time.Duration

	// TimingLimit caps the kept per-request timings
	// (default: DefaultTimingLimit).
	TimingLimit int

	// Advertiser publishes _aka-server._tcp once started. Optional.
	Advertiser *discovery.Advertiser

	// OnLogin is called after every login attempt. Optional.
	OnLogin func(LoginEvent)

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *ServerConfig) Validate() error {
	if err := validateAddr("listen address", c.ListenAddr); err != nil {
		return err
	}
	if c.TimingLimit < 0 {
		return fmt.Errorf("%w: negative timing limit", ErrInvalidConfig)
	}
	return validateDurations(c.PollInterval, c.IOTimeout)
}

// applyDefaults fills in default values for unset fields.
func (c *ServerConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = aka.DefaultServerID
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":" + strconv.Itoa(DefaultServerPort)
	}
	if c.PollInterval == 0 {
		c.PollInterval = transport.DefaultPollInterval
	}
	if c.IOTimeout == 0 {
		c.IOTimeout = transport.DefaultIOTimeout
	}
	if c.TimingLimit == 0 {
		c.TimingLimit = DefaultTimingLimit
	}
}

// GatewayConfig holds the configuration of a Gateway.
type GatewayConfig struct {
	// ID is the Gateway identity (default: aka.DefaultGatewayID).
	ID string

	// ListenAddr is the address to listen on (default: ":4542").
	ListenAddr string

	// ServerAddr is the Server's "host:port". If empty and Resolver is
	// set, the Server is discovered; otherwise DefaultServerAddr is used.
	ServerAddr string

	// ServerInstance selects a discovered Server by instance name. Empty
	// takes the first Server found.
	ServerInstance string

	// Resolver discovers the Server when ServerAddr is empty. Optional.
	Resolver *discovery.Resolver

	// Credentials from an earlier registration. If nil, Register must be
	// called before Start.
	Credentials *aka.Credentials

	// OnRegistered is called with the new credentials after Register.
	OnRegistered func(*aka.Credentials)

	// PeerStore persists the Client table. If nil, entries are kept in
	// memory only.
	PeerStore peers.Store

	// Deriver, Nonces and Clock feed the handshake. Nil selects the
	// reference curve, crypto/rand and time.Now.
	Deriver *crypto.Deriver
	Nonces  crypto.NonceSource
	Clock   aka.Clock

	// Net provides sockets. If nil, the host network stack is used.
	Net piontransport.Net

	// PollInterval bounds each accept wait (default: 100ms).
	PollInterval time.Duration

	// IOTimeout bounds socket reads and writes, including the Server
	// round-trip (default: 30s).
	IOTimeout time.Duration

	// TimingLimit caps the kept per-request timings
	// (default: DefaultTimingLimit).
	TimingLimit int

	// Advertiser publishes _aka-gateway._tcp once started. Optional.
	Advertiser *discovery.Advertiser

	// OnLogin is called after every relayed login attempt. Optional.
	OnLogin func(LoginEvent)

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *GatewayConfig) Validate() error {
	if err := validateAddr("listen address", c.ListenAddr); err != nil {
		return err
	}
	if err := validateAddr("server address", c.ServerAddr); err != nil {
		return err
	}
	if err := validateCredentials(c.Credentials, c.ID, aka.DefaultGatewayID); err != nil {
		return err
	}
	if c.TimingLimit < 0 {
		return fmt.Errorf("%w: negative timing limit", ErrInvalidConfig)
	}
	return validateDurations(c.PollInterval, c.IOTimeout)
}

// applyDefaults fills in default values for unset fields.
func (c *GatewayConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = aka.DefaultGatewayID
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":" + strconv.Itoa(DefaultGatewayPort)
	}
	if c.ServerAddr == "" && c.Resolver == nil {
		c.ServerAddr = DefaultServerAddr
	}
	if c.PollInterval == 0 {
		c.PollInterval = transport.DefaultPollInterval
	}
	if c.IOTimeout == 0 {
		c.IOTimeout = transport.DefaultIOTimeout
	}
	if c.TimingLimit == 0 {
		c.TimingLimit = DefaultTimingLimit
	}
}

// ClientConfig holds the configuration of a Client.
type ClientConfig struct {
	// ID is the Client identity (default: aka.DefaultClientID).
	ID string

	// GatewayAddr is the Gateway's "host:port". If empty and Resolver is
	// set, the Gateway is discovered; otherwise DefaultGatewayAddr is used.
	GatewayAddr string

	// GatewayInstance selects a discovered Gateway by instance name.
	// Empty takes the first Gateway found.
	GatewayInstance string

	// Resolver discovers the Gateway when GatewayAddr is empty. Optional.
	Resolver *discovery.Resolver

	// Credentials from an earlier registration. If nil, Register must be
	// called before Login.
	Credentials *aka.Credentials

	// OnRegistered is called with the new credentials after Register.
	OnRegistered func(*aka.Credentials)

	// Deriver, Nonces and Clock feed the handshake. Nil selects the
	// reference curve, crypto/rand and time.Now.
	Deriver *crypto.Deriver
	Nonces  crypto.NonceSource
	Clock   aka.Clock

	// Net provides sockets. If nil, the host network stack is used.
	Net piontransport.Net

	// IOTimeout bounds each exchange with the Gateway (default: 30s).
	IOTimeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *ClientConfig) Validate() error {
	if err := validateAddr("gateway address", c.GatewayAddr); err != nil {
		return err
	}
	if err := validateCredentials(c.Credentials, c.ID, aka.DefaultClientID); err != nil {
		return err
	}
	return validateDurations(0, c.IOTimeout)
}

// applyDefaults fills in default values for unset fields.
func (c *ClientConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = aka.DefaultClientID
	}
	if c.GatewayAddr == "" && c.Resolver == nil {
		c.GatewayAddr = DefaultGatewayAddr
	}
	if c.IOTimeout == 0 {
		c.IOTimeout = transport.DefaultIOTimeout
	}
}

// validateAddr accepts "" or a "host:port" with a numeric port.
func validateAddr(what, addr string) error {
	if addr == "" {
		return nil
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalidConfig, what, addr, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("%w: %s %q: invalid port", ErrInvalidConfig, what, addr)
	}
	return nil
}

func validateDurations(poll, io time.Duration) error {
	if poll < 0 {
		return fmt.Errorf("%w: negative poll interval", ErrInvalidConfig)
	}
	if io < 0 {
		return fmt.Errorf("%w: negative I/O timeout", ErrInvalidConfig)
	}
	return nil
}

// validateCredentials checks preloaded credentials against the role
// identity (id, or def when id is empty).
func validateCredentials(creds *aka.Credentials, id, def string) error {
	if creds == nil {
		return nil
	}
	if !creds.Registered() {
		return fmt.Errorf("%w: credentials without verifier", ErrInvalidConfig)
	}
	if id == "" {
		id = def
	}
	if string(creds.ID) != id {
		return fmt.Errorf("%w: credentials belong to %q, not %q", ErrInvalidConfig, creds.ID, id)
	}
	return nil
}
