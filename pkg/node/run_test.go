package node

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/backkem/triaka/pkg/console"
	"github.com/backkem/triaka/pkg/transport"
	"github.com/pion/transport/v3/test"
)

func TestRunStopsOnCommand(t *testing.T) {
	report := test.CheckRoutines(t)
	defer report()

	server, err := NewServer(ServerConfig{ListenAddr: "127.0.0.1:0", PollInterval: testPoll})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	r, w := io.Pipe()
	con := console.New(console.Config{Input: r})

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), server, con) }()

	if _, err := w.Write([]byte("status\nstop\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop command")
	}
	if con.Command() != "stop" {
		t.Errorf("Command() = %q, want %q", con.Command(), "stop")
	}
	_ = w.Close()
	<-con.Done()

	if err := server.Stop(); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("second Stop() error = %v, want %v", err, transport.ErrClosed)
	}
}

func TestRunStopsOnContext(t *testing.T) {
	server, err := NewServer(ServerConfig{ListenAddr: "127.0.0.1:0", PollInterval: testPoll})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, server, nil) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunStartFailure(t *testing.T) {
	g, err := NewGateway(GatewayConfig{ListenAddr: "127.0.0.1:0", ServerAddr: "127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewGateway failed: %v", err)
	}
	defer func() { _ = g.Stop() }()

	if err := Run(context.Background(), g, nil); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Run() error = %v, want %v", err, ErrNotRegistered)
	}
}
