package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/backkem/triaka/pkg/message"
	"github.com/pion/transport/v3"
	"github.com/pion/transport/v3/stdnet"
)

// Dialer performs outbound exchanges: connect, send one request, read one
// reply, close. It never retries.
type Dialer struct {
	net     transport.Net
	dialer  transport.Dialer
	timeout time.Duration
}

// NewDialer creates a dialer. A nil n uses the host network stack; a
// non-positive timeout selects DefaultIOTimeout.
func NewDialer(n transport.Net, timeout time.Duration) (*Dialer, error) {
	if n == nil {
		var err error
		if n, err = stdnet.NewNet(); err != nil {
			return nil, err
		}
	}
	if timeout <= 0 {
		timeout = DefaultIOTimeout
	}
	return &Dialer{
		net:     n,
		dialer:  n.CreateDialer(&net.Dialer{Timeout: timeout}),
		timeout: timeout,
	}, nil
}

// Exchange sends req to addr and returns the reply.
//
// Errors wrap ErrConnectFailed when addr cannot be reached, ErrWriteFailed
// when the request cannot be sent and ErrReadFailed when no reply arrives
// in time.
func (d *Dialer) Exchange(ctx context.Context, addr string, req []byte) ([]byte, error) {
	if addr == "" {
		return nil, ErrInvalidAddress
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	conn, err := d.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	deadline := time.Now().Add(d.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	if _, err := message.NewStreamWriter(conn).Write(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	reply, err := message.NewStreamReader(conn).Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return reply, nil
}
