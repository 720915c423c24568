package aka

import (
	"testing"
	"time"

	"github.com/backkem/triaka/pkg/crypto"
	"github.com/backkem/triaka/pkg/message"
	"github.com/backkem/triaka/pkg/peers"
)

const (
	clientAddr  = "192.168.1.20:51000"
	gatewayAddr = "192.168.1.10:52000"
)

var fixtureTime = time.Unix(1700000000, 0)

// fixture holds three registered roles with scripted nonces.
type fixture struct {
	clock Clock

	serverNonces  *crypto.FixedNonces
	gatewayNonces *crypto.FixedNonces
	clientNonces  *crypto.FixedNonces

	serverTable  *peers.Table // Gateway entries
	gatewayTable *peers.Table // Client entries

	gatewayCreds *Credentials
	clientCreds  *Credentials
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:         FixedClock(fixtureTime),
		serverNonces:  crypto.NewFixedNonces(2222, 6666),
		gatewayNonces: crypto.NewFixedNonces(1111, 4444),
		clientNonces:  crypto.NewFixedNonces(3333, 5555),
	}

	var err error
	if f.serverTable, err = peers.NewTable(peers.TableConfig{}); err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	if f.gatewayTable, err = peers.NewTable(peers.TableConfig{}); err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	f.gatewayCreds = register(t, DefaultGatewayID, f.gatewayNonces, DefaultServerID, f.serverNonces, f.serverTable, gatewayAddr)
	f.clientCreds = register(t, DefaultClientID, f.clientNonces, DefaultGatewayID, f.gatewayNonces, f.gatewayTable, clientAddr)
	return f
}

func register(t *testing.T, id string, idNonces crypto.NonceSource, rid string, ridNonces crypto.NonceSource, table *peers.Table, addr string) *Credentials {
	t.Helper()

	initiator, err := NewInitiator([]byte(id), idNonces)
	if err != nil {
		t.Fatalf("NewInitiator failed: %v", err)
	}
	resp, err := NewResponder(ResponderConfig{ID: []byte(rid), Table: table, Nonces: ridNonces})
	if err != nil {
		t.Fatalf("NewResponder failed: %v", err)
	}

	req, err := initiator.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	reply, err := resp.HandleRegister(addr, req)
	if err != nil {
		t.Fatalf("HandleRegister failed: %v", err)
	}
	creds, err := initiator.Finish(reply)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	return creds
}

func (f *fixture) client(t *testing.T) *ClientLogin {
	t.Helper()
	c, err := NewClientLogin(ClientLoginConfig{Credentials: f.clientCreds, Nonces: f.clientNonces, Clock: f.clock})
	if err != nil {
		t.Fatalf("NewClientLogin failed: %v", err)
	}
	return c
}

func (f *fixture) gateway(t *testing.T) *GatewayLogin {
	t.Helper()
	g, err := NewGatewayLogin(GatewayLoginConfig{Credentials: f.gatewayCreds, Table: f.gatewayTable, Clock: f.clock})
	if err != nil {
		t.Fatalf("NewGatewayLogin failed: %v", err)
	}
	return g
}

func (f *fixture) server(t *testing.T) *ServerLogin {
	t.Helper()
	s, err := NewServerLogin(ServerLoginConfig{Table: f.serverTable, Nonces: f.serverNonces, Clock: f.clock})
	if err != nil {
		t.Fatalf("NewServerLogin failed: %v", err)
	}
	return s
}

// transcript records the five messages of a run. Hook functions may edit
// a message before it is delivered.
type transcript struct {
	login    *message.LoginRequest
	forward  *message.ForwardRequest
	srvReply *message.ServerLoginReply
	gwReply  *message.GatewayLoginReply

	onLogin    func(*message.LoginRequest)
	onForward  func(*message.ForwardRequest)
	onSrvReply func(*message.ServerLoginReply)
	onGwReply  func(*message.GatewayLoginReply)
}

type runResult struct {
	client  *ClientLogin
	gateway *GatewayLogin
	server  *ServerLogin
	sk      []byte
	err     error
}

func (f *fixture) run(t *testing.T, tr *transcript) runResult {
	t.Helper()
	if tr == nil {
		tr = &transcript{}
	}

	res := runResult{client: f.client(t), gateway: f.gateway(t), server: f.server(t)}

	var err error
	if tr.login, err = res.client.Start(); err != nil {
		t.Fatalf("client Start failed: %v", err)
	}
	if tr.onLogin != nil {
		tr.onLogin(tr.login)
	}

	if tr.forward, err = res.gateway.HandleClient(clientAddr, tr.login); err != nil {
		res.err = err
		return res
	}
	if tr.onForward != nil {
		tr.onForward(tr.forward)
	}

	if tr.srvReply, err = res.server.Handle(gatewayAddr, tr.forward); err != nil {
		res.gateway.Reject()
		res.err = err
		return res
	}
	if tr.onSrvReply != nil {
		tr.onSrvReply(tr.srvReply)
	}

	if tr.gwReply, err = res.gateway.HandleServer(tr.srvReply); err != nil {
		res.err = err
		return res
	}
	if tr.onGwReply != nil {
		tr.onGwReply(tr.gwReply)
	}

	res.sk, res.err = res.client.Finish(tr.gwReply)
	return res
}

// flip toggles the lowest bit of the last byte of v.
func flip(v []byte) []byte {
	if len(v) == 0 {
		return []byte{1}
	}
	out := append([]byte(nil), v...)
	out[len(out)-1] ^= 1
	return out
}
