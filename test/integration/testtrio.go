// Package integration provides end-to-end tests running the three roles
// together over loopback.
package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/backkem/triaka/pkg/discovery"
	"github.com/backkem/triaka/pkg/node"
	"github.com/backkem/triaka/pkg/peers"
	"github.com/pion/logging"
)

// TestTrio holds a Server and a Gateway registered with it, both serving
// on loopback. Clients are created with NewClient.
type TestTrio struct {
	Server  *node.Server
	Gateway *node.Gateway

	// ServerLogins and GatewayLogins record every login attempt.
	ServerLogins  *EventLog
	GatewayLogins *EventLog

	t             *testing.T
	mdns          *discovery.MockMDNS
	resolver      *discovery.Resolver
	loggerFactory logging.LoggerFactory
}

// TestTrioConfig configures NewTestTrio.
type TestTrioConfig struct {
	// ServerStore and GatewayStore persist the peer tables.
	// If nil, tables live in memory.
	ServerStore  peers.Store
	GatewayStore peers.Store

	// Discovery connects the roles through an in-process mDNS instead of
	// fixed addresses.
	Discovery bool

	// Timeout bounds every exchange. Defaults to 5 seconds.
	Timeout time.Duration

	// LoggerFactory for logging. If nil, uses DefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// EventLog collects login events.
type EventLog struct {
	mu     sync.Mutex
	events []node.LoginEvent
}

// Record appends ev.
func (l *EventLog) Record(ev node.LoginEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Last returns the latest event, or false if none was recorded.
func (l *EventLog) Last() (node.LoginEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return node.LoginEvent{}, false
	}
	return l.events[len(l.events)-1], true
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// NewTestTrio starts a Server and a registered Gateway. Both are stopped
// when the test ends.
func NewTestTrio(t *testing.T, config TestTrioConfig) *TestTrio {
	t.Helper()

	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	trio := &TestTrio{
		ServerLogins:  &EventLog{},
		GatewayLogins: &EventLog{},
		t:             t,
		loggerFactory: config.LoggerFactory,
	}

	var serverAdv, gatewayAdv *discovery.Advertiser
	if config.Discovery {
		trio.mdns = discovery.NewMockMDNS()
		var err error
		trio.resolver, err = discovery.NewResolver(discovery.ResolverConfig{
			Querier:       trio.mdns,
			BrowseTimeout: 500 * time.Millisecond,
			LookupTimeout: 500 * time.Millisecond,
			LoggerFactory: config.LoggerFactory,
		})
		if err != nil {
			t.Fatalf("Failed to create resolver: %v", err)
		}
		serverAdv = trio.newAdvertiser()
		gatewayAdv = trio.newAdvertiser()
	}

	server, err := node.NewServer(node.ServerConfig{
		ListenAddr:    "127.0.0.1:0",
		PeerStore:     config.ServerStore,
		PollInterval:  10 * time.Millisecond,
		IOTimeout:     config.Timeout,
		Advertiser:    serverAdv,
		OnLogin:       trio.ServerLogins.Record,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	trio.Server = server

	gatewayConfig := node.GatewayConfig{
		ListenAddr:    "127.0.0.1:0",
		PeerStore:     config.GatewayStore,
		PollInterval:  10 * time.Millisecond,
		IOTimeout:     config.Timeout,
		Advertiser:    gatewayAdv,
		OnLogin:       trio.GatewayLogins.Record,
		LoggerFactory: config.LoggerFactory,
	}
	if config.Discovery {
		gatewayConfig.Resolver = trio.resolver
	} else {
		gatewayConfig.ServerAddr = server.Addr().String()
	}

	gateway, err := node.NewGateway(gatewayConfig)
	if err != nil {
		t.Fatalf("Failed to create gateway: %v", err)
	}
	t.Cleanup(func() { _ = gateway.Stop() })

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	if err := gateway.Register(ctx); err != nil {
		t.Fatalf("Gateway registration failed: %v", err)
	}
	if err := gateway.Start(); err != nil {
		t.Fatalf("Failed to start gateway: %v", err)
	}
	trio.Gateway = gateway

	return trio
}

// NewClient creates a Client for the trio's Gateway and registers it.
func (tr *TestTrio) NewClient(id string) *node.Client {
	tr.t.Helper()

	config := node.ClientConfig{
		ID:            id,
		IOTimeout:     10 * time.Second,
		LoggerFactory: tr.loggerFactory,
	}
	if tr.resolver != nil {
		config.Resolver = tr.resolver
	} else {
		config.GatewayAddr = tr.Gateway.Addr().String()
	}

	client, err := node.NewClient(config)
	if err != nil {
		tr.t.Fatalf("Failed to create client: %v", err)
	}
	if err := client.Register(context.Background()); err != nil {
		tr.t.Fatalf("Client registration failed: %v", err)
	}
	return client
}

func (tr *TestTrio) newAdvertiser() *discovery.Advertiser {
	tr.t.Helper()
	a, err := discovery.NewAdvertiser(discovery.AdvertiserConfig{
		Announcer:     tr.mdns,
		LoggerFactory: tr.loggerFactory,
	})
	if err != nil {
		tr.t.Fatalf("Failed to create advertiser: %v", err)
	}
	tr.t.Cleanup(func() { _ = a.Close() })
	return a
}
