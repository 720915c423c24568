package aka

import (
	"errors"
	"sync"

	"github.com/backkem/triaka/pkg/crypto"
	"github.com/backkem/triaka/pkg/message"
	"github.com/backkem/triaka/pkg/peers"
)

// GatewayLoginConfig configures one Gateway login relay.
type GatewayLoginConfig struct {
	// Credentials from the Gateway's registration with the Server. Required.
	Credentials *Credentials

	// Table holds the entries of registered Clients. Required.
	Table *peers.Table

	// Clock stamps t_G and t_G2. If nil, time.Now is used.
	Clock Clock
}

// GatewayLogin is the Gateway transcript of one login attempt. It handles
// the Client request (step 2) and the Server reply (step 4).
type GatewayLogin struct {
	creds *Credentials
	table *peers.Table
	clock Clock

	state State
	h     []byte // table entry of the Client
	hGS   []byte
	wP    []byte
	bi    []byte
	sk    []byte

	mu sync.Mutex
}

// NewGatewayLogin creates a Gateway transcript.
func NewGatewayLogin(config GatewayLoginConfig) (*GatewayLogin, error) {
	if !config.Credentials.Registered() {
		return nil, ErrNotRegistered
	}
	if config.Table == nil {
		return nil, ErrInvalidConfig
	}
	return &GatewayLogin{
		creds: config.Credentials,
		table: config.Table,
		clock: config.Clock,
		state: StateInit,
	}, nil
}

// State returns the current state.
func (g *GatewayLogin) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// HandleClient re-masks the Client request for the Server:
//
//	wP' = cU ^ h, bi = hash(wP' || t) ^ cid, cN = (cU ^ h) ^ h_GS,
//	rid = hash(cN || h_GS) ^ b_G, c2 = hash(c1 || t_G || cN || b_G)
//
// An unknown caller address returns ErrAddressNotRegistered and leaves
// the table untouched.
func (g *GatewayLogin) HandleClient(addr string, req *message.LoginRequest) (*message.ForwardRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateInit {
		return nil, ErrInvalidState
	}
	if req == nil {
		return nil, message.ErrInvalidNumberOfArguments
	}

	h, err := g.table.Get(addr)
	if errors.Is(err, peers.ErrNotRegistered) {
		g.state = StateRejected
		return nil, ErrAddressNotRegistered
	} else if err != nil {
		return nil, err
	}

	b := g.creds.Nonce
	tG := g.clock.stamp()
	g.h = h
	g.hGS = g.creds.MaskKey()
	g.wP = crypto.XORBytes(req.CU, h)
	g.bi = crypto.XORBytes(crypto.HashConcat(g.wP, req.Time), req.CID)

	cN := crypto.XORBytes(g.wP, g.hGS)
	rid := crypto.XORBytes(crypto.HashConcat(cN, g.hGS), b)
	c2 := crypto.HashConcat(req.C1, tG, cN, b)

	g.state = StateWaitingServer
	return &message.ForwardRequest{
		CID:         req.CID,
		Time:        req.Time,
		C2:          c2,
		RID:         rid,
		CN:          cN,
		GatewayTime: tG,
	}, nil
}

// HandleServer turns the Server reply into the Client confirmation and
// computes SK_G:
//
//	yP = cS ^ h_GS, cM = (cS ^ h) ^ h_GS, SK_G = hash(yP || wP' || bi || b_G),
//	c4 = hash(c3 || t_G2 || cM || b_G), ridM = hash(cM || h) ^ b_G
func (g *GatewayLogin) HandleServer(reply *message.ServerLoginReply) (*message.GatewayLoginReply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateWaitingServer {
		return nil, ErrInvalidState
	}
	if reply == nil {
		return nil, message.ErrInvalidNumberOfArguments
	}

	b := g.creds.Nonce
	tG2 := g.clock.stamp()
	yP := crypto.XORBytes(reply.CS, g.hGS)
	cM := crypto.XORBytes(crypto.XORBytes(reply.CS, g.h), g.hGS)
	g.sk = crypto.HashConcat(yP, g.wP, g.bi, b)
	c4 := crypto.HashConcat(reply.C3, tG2, cM, b)
	ridM := crypto.XORBytes(crypto.HashConcat(cM, g.h), b)

	g.state = StateConfirmed
	return &message.GatewayLoginReply{
		C3:          reply.C3,
		CS:          reply.CS,
		ServerTime:  reply.ServerTime,
		C4:          c4,
		CM:          cM,
		GatewayTime: tG2,
		RIDM:        ridM,
	}, nil
}

// Abort marks the attempt as failed in transport, typically because the
// Server could not be reached.
func (g *GatewayLogin) Abort() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.state.IsTerminal() {
		g.state = StateTransportFailed
	}
}

// Reject marks the attempt as rejected upstream.
func (g *GatewayLogin) Reject() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.state.IsTerminal() {
		g.state = StateRejected
	}
}

// SessionKey returns SK_G, or nil before the Server reply was handled.
func (g *GatewayLogin) SessionKey() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]byte(nil), g.sk...)
}
