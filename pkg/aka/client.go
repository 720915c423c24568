package aka

import (
	"sync"

	"github.com/backkem/triaka/pkg/crypto"
	"github.com/backkem/triaka/pkg/message"
)

// ClientLoginConfig configures one Client login attempt.
type ClientLoginConfig struct {
	// Credentials from the Client's registration with the Gateway. Required.
	Credentials *Credentials

	// Deriver computes wP. If nil, the reference curve is used.
	Deriver *crypto.Deriver

	// Nonces supplies the ephemeral w. If nil, crypto/rand is used.
	Nonces crypto.NonceSource

	// Clock stamps t. If nil, time.Now is used.
	Clock Clock
}

// ClientLogin is the Client transcript of one login attempt.
//
//	Start:  w, wP = scalarDerive(w), cU = wP ^ h_CG, cid = hash(wP || t) ^ b_C,
//	        c1 = hash(cid || b_C || wP)
//	Finish: yP = cM ^ h_CG, bj = hash(cM || h_CG) ^ ridM,
//	        SK_C = hash(yP || wP || b_C || bj), accept iff c3 and c4 match
type ClientLogin struct {
	creds   *Credentials
	deriver *crypto.Deriver
	nonces  crypto.NonceSource
	clock   Clock

	state State
	wP    []byte
	hCG   []byte
	sk    []byte

	mu sync.Mutex
}

// NewClientLogin creates a Client transcript.
func NewClientLogin(config ClientLoginConfig) (*ClientLogin, error) {
	if !config.Credentials.Registered() {
		return nil, ErrNotRegistered
	}
	return &ClientLogin{
		creds:   config.Credentials,
		deriver: defaultDeriver(config.Deriver),
		nonces:  defaultNonces(config.Nonces),
		clock:   config.Clock,
		state:   StateInit,
	}, nil
}

// State returns the current state.
func (c *ClientLogin) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start builds the first message, Client to Gateway.
func (c *ClientLogin) Start() (*message.LoginRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInit {
		return nil, ErrInvalidState
	}

	w, err := c.nonces.Nonce()
	if err != nil {
		return nil, err
	}

	b := c.creds.Nonce
	t := c.clock.stamp()
	c.wP = c.deriver.ScalarDerive(w, crypto.BasisEphemeral)
	c.hCG = c.creds.MaskKey()

	cU := crypto.XORBytes(c.wP, c.hCG)
	cid := crypto.XORBytes(crypto.HashConcat(c.wP, t), b)
	c1 := crypto.HashConcat(cid, b, c.wP)

	c.state = StateWaitingGateway
	return &message.LoginRequest{CU: cU, CID: cid, C1: c1, Time: t}, nil
}

// Finish checks the Gateway's reply and returns SK_C on acceptance.
// A mismatch moves the transcript to StateRejected and returns
// ErrConfirmationFailed.
func (c *ClientLogin) Finish(reply *message.GatewayLoginReply) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateWaitingGateway {
		return nil, ErrInvalidState
	}
	if reply == nil {
		c.state = StateRejected
		return nil, ErrConfirmationFailed
	}

	yP := crypto.XORBytes(reply.CM, c.hCG)
	bj := crypto.XORBytes(crypto.HashConcat(reply.CM, c.hCG), reply.RIDM)
	sk := crypto.HashConcat(yP, c.wP, c.creds.Nonce, bj)
	c3 := crypto.HashConcat(sk, reply.ServerTime, yP)
	c4 := crypto.HashConcat(c3, reply.GatewayTime, reply.CM, bj)

	if !equal(c3, reply.C3) || !equal(c4, reply.C4) {
		c.state = StateRejected
		return nil, ErrConfirmationFailed
	}

	c.sk = sk
	c.state = StateConfirmed
	return append([]byte(nil), sk...), nil
}

// Abort marks the attempt as failed in transport. It has no effect once
// the transcript reached a terminal state.
func (c *ClientLogin) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsTerminal() {
		c.state = StateTransportFailed
	}
}

// Reject marks the attempt as rejected by a peer, typically because the
// Gateway answered with a status literal.
func (c *ClientLogin) Reject() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsTerminal() {
		c.state = StateRejected
	}
}

// SessionKey returns SK_C, or nil before confirmation.
func (c *ClientLogin) SessionKey() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.sk...)
}
