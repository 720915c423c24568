package aka

import (
	"errors"
	"sync"

	"github.com/backkem/triaka/pkg/crypto"
	"github.com/backkem/triaka/pkg/message"
	"github.com/backkem/triaka/pkg/peers"
)

// ServerLoginConfig configures one Server login check.
type ServerLoginConfig struct {
	// Table holds the entries of registered Gateways. Required.
	Table *peers.Table

	// Deriver computes yP. If nil, the reference curve is used.
	Deriver *crypto.Deriver

	// Nonces supplies the ephemeral y. If nil, crypto/rand is used.
	Nonces crypto.NonceSource

	// Clock stamps t_S. If nil, time.Now is used.
	Clock Clock
}

// ServerLogin is the Server transcript of one login attempt (step 3).
type ServerLogin struct {
	table   *peers.Table
	deriver *crypto.Deriver
	nonces  crypto.NonceSource
	clock   Clock

	state State
	sk    []byte

	mu sync.Mutex
}

// NewServerLogin creates a Server transcript.
func NewServerLogin(config ServerLoginConfig) (*ServerLogin, error) {
	if config.Table == nil {
		return nil, ErrInvalidConfig
	}
	return &ServerLogin{
		table:   config.Table,
		deriver: defaultDeriver(config.Deriver),
		nonces:  defaultNonces(config.Nonces),
		clock:   config.Clock,
		state:   StateInit,
	}, nil
}

// State returns the current state.
func (s *ServerLogin) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle recomputes the Gateway tag and answers with the Server share:
//
//	wP'' = cN ^ h, bi' = hash(wP'' || t) ^ cid, bj = hash(cN || h) ^ rid,
//	c1' = hash(cid || bi' || wP''), c2' = hash(c1' || t_G || cN || bj)
//
// c2' != c2 returns ErrWrongID. Otherwise
//
//	yP = scalarDerive(y), cS = yP ^ h, SK_S = hash(yP || wP'' || bi' || bj),
//	c3 = hash(SK_S || t_S || yP)
func (s *ServerLogin) Handle(addr string, req *message.ForwardRequest) (*message.ServerLoginReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInit {
		return nil, ErrInvalidState
	}
	if req == nil {
		return nil, message.ErrInvalidNumberOfArguments
	}

	h, err := s.table.Get(addr)
	if errors.Is(err, peers.ErrNotRegistered) {
		s.state = StateRejected
		return nil, ErrAddressNotRegistered
	} else if err != nil {
		return nil, err
	}

	wP := crypto.XORBytes(req.CN, h)
	bi := crypto.XORBytes(crypto.HashConcat(wP, req.Time), req.CID)
	bj := crypto.XORBytes(crypto.HashConcat(req.CN, h), req.RID)
	c1 := crypto.HashConcat(req.CID, bi, wP)
	c2 := crypto.HashConcat(c1, req.GatewayTime, req.CN, bj)
	if !equal(c2, req.C2) {
		s.state = StateRejected
		return nil, ErrWrongID
	}

	y, err := s.nonces.Nonce()
	if err != nil {
		return nil, err
	}

	tS := s.clock.stamp()
	yP := s.deriver.ScalarDerive(y, crypto.BasisEphemeral)
	cS := crypto.XORBytes(yP, h)
	s.sk = crypto.HashConcat(yP, wP, bi, bj)
	c3 := crypto.HashConcat(s.sk, tS, yP)

	s.state = StateConfirmed
	return &message.ServerLoginReply{C3: c3, CS: cS, ServerTime: tS}, nil
}

// SessionKey returns SK_S, or nil before a successful Handle.
func (s *ServerLogin) SessionKey() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.sk...)
}
