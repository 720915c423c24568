// aka-gateway relays Client logins to the Server.
//
// On start it registers with the Server unless a saved registration is
// found, then accepts Client registrations and logins.
//
// Usage:
//
//	aka-gateway [options]
//
// Options:
//
//	-c, --config       JSON config file
//	    --id           Gateway identity (default: GatewayNID028734)
//	    --listen       listen address (default: :4542)
//	    --server       Server address (default: localhost:3874)
//	-d, --discover     discover the Server over mDNS
//	    --instance     Server instance to discover
//	-a, --advertise    advertise _aka-gateway._tcp over mDNS
//	    --peers        client table file (default: in-memory)
//	    --credentials  registration file (default: register on every start)
//	-t, --timeout      socket and Server round-trip timeout
//	-l, --log-level    log level (default: info)
//
// Type "stop" or "end" to shut down.
package main

import (
	"log"
	"os"

	"github.com/backkem/triaka/internal/cli"
	"github.com/backkem/triaka/pkg/aka"
	"github.com/backkem/triaka/pkg/node"
)

func main() {
	opts, err := cli.ParseFlags(aka.RoleGateway, os.Args[1:], os.Stderr)
	if cli.IsHelp(err) {
		return
	} else if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	lf, err := opts.LoggerFactory()
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}
	timeout, _ := opts.TimeoutDuration()

	creds, save, err := opts.LoadCredentials()
	if err != nil {
		log.Fatalf("Failed to load credentials: %v", err)
	}
	advertiser, err := opts.Advertiser(lf)
	if err != nil {
		log.Fatalf("Failed to create advertiser: %v", err)
	}
	resolver, err := opts.Resolver(lf)
	if err != nil {
		log.Fatalf("Failed to create resolver: %v", err)
	}

	gateway, err := node.NewGateway(node.GatewayConfig{
		ID:             opts.ID,
		ListenAddr:     opts.Listen,
		ServerAddr:     opts.Upstream,
		ServerInstance: opts.Instance,
		Resolver:       resolver,
		Credentials:    creds,
		OnRegistered:   save,
		PeerStore:      opts.PeerStore(),
		IOTimeout:      timeout,
		Advertiser:     advertiser,
		LoggerFactory:  lf,
	})
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	if creds == nil {
		ctx, stop := cli.SignalContext()
		err := gateway.Register(ctx)
		stop()
		if err != nil {
			_ = gateway.Stop()
			log.Fatalf("Registration failed: %v", err)
		}
	}

	if err := cli.Serve(gateway, lf); err != nil {
		log.Fatalf("Gateway error: %v", err)
	}
	if advertiser != nil {
		_ = advertiser.Close()
	}
}
