// Package discovery advertises and resolves AKA role endpoints over DNS-SD
// (mDNS).
//
// A Server advertises _aka-server._tcp and a Gateway advertises
// _aka-gateway._tcp. A Gateway without a configured server address, or a
// Client without a configured gateway address, resolves its upstream by
// instance name or takes the first instance that answers.
package discovery

// DefaultDomain is the mDNS domain all roles use.
const DefaultDomain = "local."

// ServiceType is the role a DNS-SD service belongs to.
type ServiceType int

// Role service types: _aka-server._tcp and _aka-gateway._tcp.
const (
	ServiceTypeUnknown ServiceType = iota
	ServiceTypeServer
	ServiceTypeGateway
)

var serviceNames = map[ServiceType][2]string{
	ServiceTypeServer:  {"Server", "_aka-server._tcp"},
	ServiceTypeGateway: {"Gateway", "_aka-gateway._tcp"},
}

func (s ServiceType) String() string {
	if n, ok := serviceNames[s]; ok {
		return n[0]
	}
	return "Unknown"
}

// ServiceString returns the DNS-SD service label of s, or "" for an
// unknown type.
func (s ServiceType) ServiceString() string {
	return serviceNames[s][1]
}

// IsValid reports whether s names a role.
func (s ServiceType) IsValid() bool {
	_, ok := serviceNames[s]
	return ok
}
