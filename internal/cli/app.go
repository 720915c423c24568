package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/backkem/triaka/pkg/aka"
	"github.com/backkem/triaka/pkg/console"
	"github.com/backkem/triaka/pkg/discovery"
	"github.com/backkem/triaka/pkg/node"
	"github.com/backkem/triaka/pkg/peers"
	"github.com/pion/logging"
)

// ParseLogLevel maps a level name to a logging.LogLevel.
func ParseLogLevel(name string) (logging.LogLevel, error) {
	switch strings.ToLower(name) {
	case "disable", "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "", "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// LoggerFactory returns a factory writing to stderr at the configured
// level. PION_LOG_* environment variables still select per-scope levels.
func (o *Options) LoggerFactory() (logging.LoggerFactory, error) {
	level, err := ParseLogLevel(o.LogLevel)
	if err != nil {
		return nil, err
	}
	lf := logging.NewDefaultLoggerFactory()
	lf.DefaultLogLevel = level
	return lf, nil
}

// PeerStore returns a file store for Peers, or nil for an in-memory table.
func (o *Options) PeerStore() peers.Store {
	if o.Peers == "" {
		return nil
	}
	return peers.FileStore{Path: o.Peers}
}

// Advertiser returns an mDNS advertiser when Advertise is set.
func (o *Options) Advertiser(lf logging.LoggerFactory) (*discovery.Advertiser, error) {
	if !o.Advertise {
		return nil, nil
	}
	return discovery.NewAdvertiser(discovery.AdvertiserConfig{LoggerFactory: lf})
}

// Resolver returns an mDNS resolver when Discover is set and no upstream
// address is given.
func (o *Options) Resolver(lf logging.LoggerFactory) (*discovery.Resolver, error) {
	if !o.Discover || o.Upstream != "" {
		return nil, nil
	}
	return discovery.NewResolver(discovery.ResolverConfig{LoggerFactory: lf})
}

// LoadCredentials reads the registration file, if any. The returned
// callback saves new registrations to the same file.
func (o *Options) LoadCredentials() (*aka.Credentials, func(*aka.Credentials), error) {
	if o.Credentials == "" {
		return nil, nil, nil
	}
	creds, err := node.LoadCredentials(o.Credentials)
	if err != nil {
		return nil, nil, err
	}
	if creds != nil && string(creds.ID) != o.ID {
		// Registered under another identity; register again.
		creds = nil
	}
	save := func(c *aka.Credentials) {
		if err := node.SaveCredentials(o.Credentials, c); err != nil {
			fmt.Fprintf(os.Stderr, "save credentials: %v\n", err)
		}
	}
	return creds, save, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Serve runs svc until a signal arrives or "stop"/"end" is typed on stdin.
func Serve(svc node.Service, lf logging.LoggerFactory) error {
	ctx, stop := SignalContext()
	defer stop()

	con := console.New(console.Config{Input: os.Stdin, LoggerFactory: lf})
	fmt.Printf("Type %q or %q to exit.\n", console.DefaultCommands[0], console.DefaultCommands[1])
	return node.Run(ctx, svc, con)
}
