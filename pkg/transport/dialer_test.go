package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestDialerConnectFailure(t *testing.T) {
	// Reserve a port, then close it so nothing listens there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	d, err := NewDialer(nil, time.Second)
	if err != nil {
		t.Fatalf("NewDialer() error = %v", err)
	}
	if _, err := d.Exchange(context.Background(), addr, []byte("2")); !errors.Is(err, ErrConnectFailed) {
		t.Errorf("Exchange() error = %v, want %v", err, ErrConnectFailed)
	}
}

func TestDialerInvalidAddress(t *testing.T) {
	d, _ := NewDialer(nil, time.Second)
	if _, err := d.Exchange(context.Background(), "", []byte("2")); err != ErrInvalidAddress {
		t.Errorf("Exchange() error = %v, want %v", err, ErrInvalidAddress)
	}
}

func TestDialerCancelledContext(t *testing.T) {
	d, _ := NewDialer(nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Exchange(ctx, "127.0.0.1:1", []byte("2"))
	if !errors.Is(err, ErrConnectFailed) || !errors.Is(err, context.Canceled) {
		t.Errorf("Exchange() error = %v, want connect failure wrapping context.Canceled", err)
	}
}

func TestDialerReadTimeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer l.Close()

	// Accept and never answer.
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	d, _ := NewDialer(nil, 200*time.Millisecond)
	_, err = d.Exchange(context.Background(), l.Addr().String(), []byte("2"))
	if !errors.Is(err, ErrReadFailed) {
		t.Errorf("Exchange() error = %v, want %v", err, ErrReadFailed)
	}

	if conn, ok := <-accepted; ok {
		conn.Close()
	}
}
