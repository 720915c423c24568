package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/backkem/triaka/pkg/aka"
	"github.com/backkem/triaka/pkg/crypto"
	"github.com/backkem/triaka/pkg/discovery"
	"github.com/backkem/triaka/pkg/message"
	"github.com/backkem/triaka/pkg/timing"
	"github.com/backkem/triaka/pkg/transport"
	"github.com/pion/logging"
)

// LoginResult is the outcome of a confirmed login.
type LoginResult struct {
	// SessionKey is SK_C as hex text.
	SessionKey []byte

	// Keys are expanded from SessionKey.
	Keys *crypto.SessionKeys

	// Gateway is the address the login ran against.
	Gateway string
}

// Client registers with a Gateway and logs in through it.
type Client struct {
	config  ClientConfig
	dialer  *transport.Dialer
	timings *timing.Recorder
	log     logging.LeveledLogger

	mu          sync.RWMutex
	creds       *aka.Credentials
	gatewayAddr string
}

// NewClient validates config and creates a Client.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	dialer, err := transport.NewDialer(config.Net, config.IOTimeout)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:      config,
		dialer:      dialer,
		creds:       config.Credentials,
		gatewayAddr: config.GatewayAddr,
		timings:     timing.NewRecorder(timing.Config{LoggerFactory: config.LoggerFactory}),
	}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("aka-client")
	}
	return c, nil
}

// Register obtains a verifier from the Gateway. Earlier credentials are
// replaced.
func (c *Client) Register(ctx context.Context) error {
	c.timings.Start("register")
	defer func() { _ = c.timings.Stop("register") }()

	addr, err := c.upstream(ctx)
	if err != nil {
		return err
	}

	creds, err := register(ctx, c.dialer, addr, c.config.ID, c.config.Nonces)
	if err != nil {
		return fmt.Errorf("register with gateway %s: %w", addr, err)
	}

	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()

	if c.log != nil {
		c.log.Infof("%s registered with gateway %s", c.config.ID, addr)
	}
	if c.config.OnRegistered != nil {
		c.config.OnRegistered(creds)
	}
	return nil
}

// Login runs one login attempt through the Gateway.
//
// A status literal from the Gateway is returned as *message.StatusError.
// A reply that fails key confirmation returns aka.ErrConfirmationFailed.
func (c *Client) Login(ctx context.Context) (*LoginResult, error) {
	c.timings.Start("login")
	defer func() { _ = c.timings.Stop("login") }()

	creds := c.Credentials()
	if !creds.Registered() {
		return nil, ErrNotRegistered
	}
	addr, err := c.upstream(ctx)
	if err != nil {
		return nil, err
	}

	c.timings.Start("login.prepare")
	login, err := aka.NewClientLogin(aka.ClientLoginConfig{
		Credentials: creds,
		Deriver:     c.config.Deriver,
		Nonces:      c.config.Nonces,
		Clock:       c.config.Clock,
	})
	if err != nil {
		return nil, err
	}
	req, err := login.Start()
	if err != nil {
		return nil, err
	}

	_ = c.timings.StopAndStart("login.prepare", "login.exchange")
	raw, err := c.dialer.Exchange(ctx, addr, req.Encode())
	if err != nil {
		login.Abort()
		return nil, fmt.Errorf("login via gateway %s: %w", addr, err)
	}

	_ = c.timings.StopAndStart("login.exchange", "login.confirm")
	defer func() { _ = c.timings.Stop("login.confirm") }()

	if !message.IsTagged(raw) {
		login.Reject()
		status := message.ParseStatus(raw)
		if c.log != nil {
			c.log.Warnf("login rejected: %v", status)
		}
		return nil, status
	}
	reply, err := message.DecodeGatewayLoginReply(raw)
	if err != nil {
		login.Reject()
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}

	sk, err := login.Finish(reply)
	if err != nil {
		if c.log != nil {
			c.log.Warnf("login via %s failed: %v", addr, err)
		}
		return nil, err
	}
	keys, err := crypto.DeriveSessionKeys(sk)
	if err != nil {
		return nil, err
	}

	if c.log != nil {
		c.log.Infof("%s logged in via %s", c.config.ID, addr)
	}
	return &LoginResult{SessionKey: sk, Keys: keys, Gateway: addr}, nil
}

// ID returns the Client identity.
func (c *Client) ID() string {
	return c.config.ID
}

// Credentials returns the credentials obtained from the Gateway, or nil.
func (c *Client) Credentials() *aka.Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// Timings returns the stopwatch of registrations and logins.
func (c *Client) Timings() *timing.Recorder {
	return c.timings
}

func (c *Client) upstream(ctx context.Context) (string, error) {
	c.mu.RLock()
	addr := c.gatewayAddr
	c.mu.RUnlock()
	if addr != "" {
		return addr, nil
	}

	addr, err := resolveUpstream(ctx, "", c.config.Resolver, discovery.ServiceTypeGateway, c.config.GatewayInstance)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.gatewayAddr = addr
	c.mu.Unlock()

	if c.log != nil {
		c.log.Infof("discovered gateway at %s", addr)
	}
	return addr, nil
}
