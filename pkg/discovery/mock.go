package discovery

import (
	"context"
	"net"
	"slices"
	"sync"

	"github.com/grandcat/zeroconf"
)

// MockMDNS is an in-process mDNS network. It is both the Announcer of an
// Advertiser and the Querier of a Resolver, so announcements are visible
// to queries until withdrawn.
type MockMDNS struct {
	// IP is attached to announced services. If nil, 127.0.0.1 is used.
	IP net.IP

	mu      sync.Mutex
	entries []*zeroconf.ServiceEntry
}

// NewMockMDNS returns an empty network.
func NewMockMDNS() *MockMDNS {
	return &MockMDNS{}
}

// Add makes e answer queries for its service.
func (m *MockMDNS) Add(e *zeroconf.ServiceEntry) {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
}

// Reset forgets every entry.
func (m *MockMDNS) Reset() {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
}

func (m *MockMDNS) drop(e *zeroconf.ServiceEntry) {
	m.mu.Lock()
	m.entries = slices.DeleteFunc(m.entries, func(x *zeroconf.ServiceEntry) bool { return x == e })
	m.mu.Unlock()
}

func (m *MockMDNS) matching(q Query) []*zeroconf.ServiceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*zeroconf.ServiceEntry
	for _, e := range m.entries {
		if e.Service == q.Service && (q.Instance == "" || e.Instance == q.Instance) {
			out = append(out, e)
		}
	}
	return out
}

// Announce implements Announcer.
func (m *MockMDNS) Announce(a Announcement) (Withdrawer, error) {
	ip := m.IP
	if ip == nil {
		ip = net.IPv4(127, 0, 0, 1)
	}
	e := MockEntry(a.Service, a.Instance, a.Port, ip, a.TXT)
	m.Add(e)
	var once sync.Once
	return withdrawFunc(func() { once.Do(func() { m.drop(e) }) }), nil
}

// Query implements Querier. It answers from the current entries and
// returns without waiting for ctx.
func (m *MockMDNS) Query(ctx context.Context, q Query, found func(*zeroconf.ServiceEntry)) error {
	for _, e := range m.matching(q) {
		if err := ctx.Err(); err != nil {
			return err
		}
		found(e)
	}
	return nil
}

// MockEntry builds a service answer.
func MockEntry(service, instance string, port int, ip net.IP, txt []string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, service, DefaultDomain)
	e.HostName = instance + "." + DefaultDomain
	e.Port = port
	e.Text = txt
	switch {
	case ip == nil:
	case ip.To4() != nil:
		e.AddrIPv4 = []net.IP{ip}
	default:
		e.AddrIPv6 = []net.IP{ip}
	}
	return e
}
