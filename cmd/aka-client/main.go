// aka-client registers with a Gateway and logs in through it.
//
// Usage:
//
//	aka-client [options]
//
// Options:
//
//	-c, --config       JSON config file
//	    --id           Client identity (default: SmartReaderMID098735)
//	    --gateway      Gateway address (default: 127.0.0.1:4542)
//	-d, --discover     discover the Gateway over mDNS
//	    --instance     Gateway instance to discover
//	    --credentials  registration file (default: register on every run)
//	-n, --logins       login attempts (default: 1)
//	-t, --timeout      exchange timeout
//	-l, --log-level    log level (default: info)
//
// The exit status is 0 when every login was confirmed.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/backkem/triaka/internal/cli"
	"github.com/backkem/triaka/pkg/aka"
	"github.com/backkem/triaka/pkg/node"
)

func main() {
	opts, err := cli.ParseFlags(aka.RoleClient, os.Args[1:], os.Stderr)
	if cli.IsHelp(err) {
		return
	} else if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}
	os.Exit(run(opts))
}

func run(opts cli.Options) int {
	lf, err := opts.LoggerFactory()
	if err != nil {
		log.Printf("Invalid options: %v", err)
		return 2
	}
	timeout, _ := opts.TimeoutDuration()

	creds, save, err := opts.LoadCredentials()
	if err != nil {
		log.Printf("Failed to load credentials: %v", err)
		return 2
	}
	resolver, err := opts.Resolver(lf)
	if err != nil {
		log.Printf("Failed to create resolver: %v", err)
		return 2
	}

	client, err := node.NewClient(node.ClientConfig{
		ID:              opts.ID,
		GatewayAddr:     opts.Upstream,
		GatewayInstance: opts.Instance,
		Resolver:        resolver,
		Credentials:     creds,
		OnRegistered:    save,
		IOTimeout:       timeout,
		LoggerFactory:   lf,
	})
	if err != nil {
		log.Printf("Failed to create client: %v", err)
		return 2
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	if creds == nil {
		if err := client.Register(ctx); err != nil {
			log.Printf("Registration failed: %v", err)
			return 1
		}
	}

	failed := 0
	for i := 0; i < opts.Logins; i++ {
		if _, err := client.Login(ctx); err != nil {
			log.Printf("Login failed: %v", err)
			failed++
		}
	}

	fmt.Print(client.Timings().Report())
	if failed > 0 {
		fmt.Println("NOPE !!! Login failed !")
		return 1
	}
	fmt.Println("OKAY !!! Logged In !")
	return 0
}
