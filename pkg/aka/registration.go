package aka

import (
	"crypto/subtle"
	"sync"

	"github.com/backkem/triaka/pkg/crypto"
	"github.com/backkem/triaka/pkg/message"
	"github.com/backkem/triaka/pkg/peers"
)

// Credentials are the long-term values an initiator keeps after
// registration: its identity, the nonce b it registered with and the
// verifier v it received.
type Credentials struct {
	ID       []byte
	Nonce    []byte
	Verifier []byte
}

// Registered reports whether c holds a verifier.
func (c *Credentials) Registered() bool {
	return c != nil && len(c.Verifier) > 0
}

// MaskKey returns hash(v || ID), the value the responder stored for this
// initiator at registration.
func (c *Credentials) MaskKey() []byte {
	return crypto.HashConcat(c.Verifier, c.ID)
}

// Initiator runs the initiator side of registration.
type Initiator struct {
	id     []byte
	nonces crypto.NonceSource

	started bool
	done    bool
	nonce   []byte

	mu sync.Mutex
}

// NewInitiator creates a registration initiator for identity id. A nil
// nonce source draws from crypto/rand.
func NewInitiator(id []byte, nonces crypto.NonceSource) (*Initiator, error) {
	if len(id) == 0 {
		return nil, ErrInvalidConfig
	}
	return &Initiator{
		id:     append([]byte(nil), id...),
		nonces: defaultNonces(nonces),
	}, nil
}

// Start draws b and returns the request (ID, a = hash(ID || b)).
func (i *Initiator) Start() (*message.RegisterRequest, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.started {
		return nil, ErrInvalidState
	}

	b, err := i.nonces.Nonce()
	if err != nil {
		return nil, err
	}
	i.nonce = b
	i.started = true

	return &message.RegisterRequest{
		ID:   i.id,
		Auth: crypto.HashConcat(i.id, b),
	}, nil
}

// Finish stores the verifier from reply and returns the credentials.
func (i *Initiator) Finish(reply *message.RegisterReply) (*Credentials, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.started || i.done {
		return nil, ErrInvalidState
	}
	if reply == nil || len(reply.Verifier) == 0 {
		return nil, ErrEmptyVerifier
	}
	i.done = true

	return &Credentials{
		ID:       i.id,
		Nonce:    i.nonce,
		Verifier: append([]byte(nil), reply.Verifier...),
	}, nil
}

// ResponderConfig configures a registration responder.
type ResponderConfig struct {
	// ID is the responder's own identity (RID). Required.
	ID []byte

	// Table receives hash(v || ID) for every registered caller. Required.
	Table *peers.Table

	// Deriver computes the verifier. If nil, the reference curve is used.
	Deriver *crypto.Deriver

	// Nonces supplies the ephemeral e. If nil, crypto/rand is used.
	Nonces crypto.NonceSource
}

// Responder issues verifiers to registering callers. It keeps no state
// between requests besides the table entries, so one Responder serves
// every registration of a role.
type Responder struct {
	id      []byte
	table   *peers.Table
	deriver *crypto.Deriver
	nonces  crypto.NonceSource
}

// NewResponder creates a registration responder.
func NewResponder(config ResponderConfig) (*Responder, error) {
	if len(config.ID) == 0 || config.Table == nil {
		return nil, ErrInvalidConfig
	}
	return &Responder{
		id:      append([]byte(nil), config.ID...),
		table:   config.Table,
		deriver: defaultDeriver(config.Deriver),
		nonces:  defaultNonces(config.Nonces),
	}, nil
}

// HandleRegister derives a verifier for the caller at addr:
//
//	m = hash(RID || e)
//	v = scalarDerive(hash(m || a), BasisRegistration)
//	table[addr] = hash(v || ID)
//
// and returns it. A previous entry for the same host is overwritten.
func (r *Responder) HandleRegister(addr string, req *message.RegisterRequest) (*message.RegisterReply, error) {
	if req == nil {
		return nil, message.ErrInvalidNumberOfArguments
	}

	e, err := r.nonces.Nonce()
	if err != nil {
		return nil, err
	}

	m := crypto.HashConcat(r.id, e)
	v := r.deriver.ScalarDerive(crypto.HashConcat(m, req.Auth), crypto.BasisRegistration)
	if err := r.table.Put(addr, crypto.HashConcat(v, req.ID)); err != nil {
		return nil, err
	}

	return &message.RegisterReply{Verifier: v}, nil
}

// equal compares two transcript values in constant time.
func equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
