// Package aka implements the registration and login procedures of the
// three-party handshake as socket-free state machines.
//
// Registration (two messages) gives an initiator a long-term verifier and
// leaves the responder with h = hash(v || ID) keyed by the caller's
// address. Login (five messages) runs Client -> Gateway -> Server -> Gateway
// -> Client and leaves all three roles with the same session key.
//
// Every login attempt uses a fresh transcript object (ClientLogin,
// GatewayLogin or ServerLogin). Objects are never reused: a failed attempt
// is restarted from the first message with fresh nonces.
//
// Usage (one login):
//
//	client, _ := aka.NewClientLogin(aka.ClientLoginConfig{Credentials: creds})
//	req, _ := client.Start()
//
//	gw, _ := aka.NewGatewayLogin(aka.GatewayLoginConfig{Credentials: gwCreds, Table: clients})
//	fwd, _ := gw.HandleClient(clientAddr, req)
//
//	srv, _ := aka.NewServerLogin(aka.ServerLoginConfig{Table: gateways})
//	srvReply, _ := srv.Handle(gatewayAddr, fwd)
//
//	gwReply, _ := gw.HandleServer(srvReply)
//	sk, err := client.Finish(gwReply)
package aka

import (
	"errors"
	"strconv"
	"time"

	"github.com/backkem/triaka/pkg/crypto"
	"github.com/backkem/triaka/pkg/message"
)

// Handshake errors.
var (
	ErrInvalidState         = errors.New("aka: invalid protocol state")
	ErrInvalidConfig        = errors.New("aka: invalid configuration")
	ErrNotRegistered        = errors.New("aka: credentials missing, register first")
	ErrAddressNotRegistered = errors.New("aka: caller address not registered")
	ErrWrongID              = errors.New("aka: confirmation tag mismatch")
	ErrConfirmationFailed   = errors.New("aka: key confirmation failed")
	ErrEmptyVerifier        = errors.New("aka: empty verifier")
)

// Role identifies a participant of the handshake.
type Role int

const (
	RoleClient Role = iota
	RoleGateway
	RoleServer
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "Client"
	case RoleGateway:
		return "Gateway"
	case RoleServer:
		return "Server"
	default:
		return "Unknown"
	}
}

// Default role identities.
const (
	DefaultClientID  = "SmartReaderMID098735"
	DefaultGatewayID = "GatewayNID028734"
	DefaultServerID  = "ServerSID928462"
)

// DefaultID returns the default identity of a role.
func (r Role) DefaultID() string {
	switch r {
	case RoleClient:
		return DefaultClientID
	case RoleGateway:
		return DefaultGatewayID
	case RoleServer:
		return DefaultServerID
	default:
		return ""
	}
}

// State represents the progress of one login transcript.
type State int

const (
	StateInit State = iota
	// StateWaitingGateway: the Client sent its LoginRequest.
	StateWaitingGateway
	// StateWaitingServer: the Gateway sent its ForwardRequest.
	StateWaitingServer
	StateConfirmed
	StateRejected
	StateTransportFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateWaitingGateway:
		return "WaitingGateway"
	case StateWaitingServer:
		return "WaitingServer"
	case StateConfirmed:
		return "Confirmed"
	case StateRejected:
		return "Rejected"
	case StateTransportFailed:
		return "TransportFailed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further message is accepted in s.
func (s State) IsTerminal() bool {
	return s == StateConfirmed || s == StateRejected || s == StateTransportFailed
}

// Clock returns the current time. Time fields on the wire are decimal Unix
// seconds taken from it; they are carried and hashed but never checked.
type Clock func() time.Time

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func (c Clock) stamp() []byte {
	if c == nil {
		c = time.Now
	}
	return strconv.AppendInt(nil, c().Unix(), 10)
}

// StatusFor maps an error from this package or from the message layer to
// the literal reported to the sender. The second result is false when the
// error has no literal.
func StatusFor(err error) (message.Status, bool) {
	switch {
	case errors.Is(err, ErrAddressNotRegistered):
		return message.StatusAddressNotRegistered, true
	case errors.Is(err, ErrWrongID):
		return message.StatusWrongID, true
	default:
		return message.StatusFor(err)
	}
}

func defaultDeriver(d *crypto.Deriver) *crypto.Deriver {
	if d == nil {
		return crypto.NewDeriver(nil)
	}
	return d
}

func defaultNonces(n crypto.NonceSource) crypto.NonceSource {
	if n == nil {
		return crypto.RandomNonces{}
	}
	return n
}
