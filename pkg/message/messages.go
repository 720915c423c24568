package message

// RegisterRequest opens a registration: the initiator's identity and its
// auth tag a = hash(ID || b).
type RegisterRequest struct {
	ID   []byte
	Auth []byte
}

// Encode serializes the request.
func (m *RegisterRequest) Encode() []byte {
	return (&Frame{Tag: TagRegister, Fields: [][]byte{m.ID, m.Auth}}).Encode()
}

// DecodeRegisterRequest parses a registration request (2 fields).
func DecodeRegisterRequest(data []byte) (*RegisterRequest, error) {
	f, err := ParseExpect(data, TagRegister, 2)
	if err != nil {
		return nil, err
	}
	return &RegisterRequest{ID: f.Fields[0], Auth: f.Fields[1]}, nil
}

// RegisterReply carries the verifier issued by the responder.
type RegisterReply struct {
	Verifier []byte
}

// Encode serializes the reply.
func (m *RegisterReply) Encode() []byte {
	return (&Frame{Tag: TagRegister, Fields: [][]byte{m.Verifier}}).Encode()
}

// DecodeRegisterReply parses a registration reply (1 field).
func DecodeRegisterReply(data []byte) (*RegisterReply, error) {
	f, err := ParseExpect(data, TagRegister, 1)
	if err != nil {
		return nil, err
	}
	return &RegisterReply{Verifier: f.Fields[0]}, nil
}

// LoginRequest is the first login hop, Client to Gateway.
type LoginRequest struct {
	CU   []byte
	CID  []byte
	C1   []byte
	Time []byte
}

// Encode serializes the request.
func (m *LoginRequest) Encode() []byte {
	return (&Frame{Tag: TagLogin, Fields: [][]byte{m.CU, m.CID, m.C1, m.Time}}).Encode()
}

// DecodeLoginRequest parses a Client login request (4 fields).
func DecodeLoginRequest(data []byte) (*LoginRequest, error) {
	f, err := ParseExpect(data, TagLogin, 4)
	if err != nil {
		return nil, err
	}
	return &LoginRequest{CU: f.Fields[0], CID: f.Fields[1], C1: f.Fields[2], Time: f.Fields[3]}, nil
}

// ForwardRequest is the second login hop, Gateway to Server.
type ForwardRequest struct {
	CID         []byte
	Time        []byte
	C2          []byte
	RID         []byte
	CN          []byte
	GatewayTime []byte
}

// Encode serializes the request.
func (m *ForwardRequest) Encode() []byte {
	return (&Frame{Tag: TagLogin, Fields: [][]byte{m.CID, m.Time, m.C2, m.RID, m.CN, m.GatewayTime}}).Encode()
}

// DecodeForwardRequest parses a Gateway login request (6 fields).
func DecodeForwardRequest(data []byte) (*ForwardRequest, error) {
	f, err := ParseExpect(data, TagLogin, 6)
	if err != nil {
		return nil, err
	}
	return &ForwardRequest{
		CID:         f.Fields[0],
		Time:        f.Fields[1],
		C2:          f.Fields[2],
		RID:         f.Fields[3],
		CN:          f.Fields[4],
		GatewayTime: f.Fields[5],
	}, nil
}

// ServerLoginReply is the third login hop, Server to Gateway.
type ServerLoginReply struct {
	C3         []byte
	CS         []byte
	ServerTime []byte
}

// Encode serializes the reply.
func (m *ServerLoginReply) Encode() []byte {
	return (&Frame{Tag: TagLogin, Fields: [][]byte{m.C3, m.CS, m.ServerTime}}).Encode()
}

// DecodeServerLoginReply parses a Server login reply (3 fields).
func DecodeServerLoginReply(data []byte) (*ServerLoginReply, error) {
	f, err := ParseExpect(data, TagLogin, 3)
	if err != nil {
		return nil, err
	}
	return &ServerLoginReply{C3: f.Fields[0], CS: f.Fields[1], ServerTime: f.Fields[2]}, nil
}

// GatewayLoginReply is the fourth login hop, Gateway to Client.
type GatewayLoginReply struct {
	C3          []byte
	CS          []byte
	ServerTime  []byte
	C4          []byte
	CM          []byte
	GatewayTime []byte
	RIDM        []byte
}

// Encode serializes the reply.
func (m *GatewayLoginReply) Encode() []byte {
	return (&Frame{Tag: TagLogin, Fields: [][]byte{
		m.C3, m.CS, m.ServerTime, m.C4, m.CM, m.GatewayTime, m.RIDM,
	}}).Encode()
}

// DecodeGatewayLoginReply parses a Gateway login reply (7 fields).
func DecodeGatewayLoginReply(data []byte) (*GatewayLoginReply, error) {
	f, err := ParseExpect(data, TagLogin, 7)
	if err != nil {
		return nil, err
	}
	return &GatewayLoginReply{
		C3:          f.Fields[0],
		CS:          f.Fields[1],
		ServerTime:  f.Fields[2],
		C4:          f.Fields[3],
		CM:          f.Fields[4],
		GatewayTime: f.Fields[5],
		RIDM:        f.Fields[6],
	}, nil
}
