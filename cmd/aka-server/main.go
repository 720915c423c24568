// aka-server is the trusted authority of the three-party handshake.
//
// It issues verifiers to Gateways and answers the logins they relay.
//
// Usage:
//
//	aka-server [options]
//
// Options:
//
//	-c, --config     JSON config file
//	    --id         Server identity (default: ServerSID928462)
//	    --listen     listen address (default: :3874)
//	-a, --advertise  advertise _aka-server._tcp over mDNS
//	    --peers      gateway table file (default: in-memory)
//	-t, --timeout    socket timeout
//	-l, --log-level  log level (default: info)
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
	opts, err := cli.ParseFlags(aka.RoleServer, os.Args[1:], os.Stderr)
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

	advertiser, err := opts.Advertiser(lf)
	if err != nil {
		log.Fatalf("Failed to create advertiser: %v", err)
	}

	server, err := node.NewServer(node.ServerConfig{
		ID:            opts.ID,
		ListenAddr:    opts.Listen,
		PeerStore:     opts.PeerStore(),
		IOTimeout:     timeout,
		Advertiser:    advertiser,
		LoggerFactory: lf,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := cli.Serve(server, lf); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	if advertiser != nil {
		_ = advertiser.Close()
	}
}
