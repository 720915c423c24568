package discovery

import (
	"crypto/rand"
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// MaxInstanceNameLength is the DNS label limit for instance names.
const MaxInstanceNameLength = 63

// Announcement is one DNS-SD registration.
type Announcement struct {
	Instance   string
	Service    string
	Domain     string
	Port       int
	TXT        []string
	Interfaces []net.Interface
}

// Withdrawer removes a published announcement.
type Withdrawer interface {
	Withdraw()
}

// Announcer publishes announcements on the network.
type Announcer interface {
	Announce(a Announcement) (Withdrawer, error)
}

type zeroconfAnnouncer struct{}

func (zeroconfAnnouncer) Announce(a Announcement) (Withdrawer, error) {
	srv, err := zeroconf.Register(a.Instance, a.Service, a.Domain, a.Port, a.TXT, a.Interfaces)
	if err != nil {
		return nil, err
	}
	return withdrawFunc(srv.Shutdown), nil
}

type withdrawFunc func()

func (f withdrawFunc) Withdraw() { f() }

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interfaces restricts announcements. If nil, all interfaces are used.
	Interfaces []net.Interface

	// Announcer publishes the records. If nil, grandcat/zeroconf is used.
	Announcer Announcer

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Advertiser announces the roles running in this process, at most one
// announcement per ServiceType.
type Advertiser struct {
	announcer  Announcer
	interfaces []net.Interface
	log        logging.LeveledLogger

	mu     sync.Mutex
	live   map[ServiceType]advertised
	closed bool
}

type advertised struct {
	handle   Withdrawer
	instance string
}

// NewAdvertiser creates an Advertiser.
func NewAdvertiser(config AdvertiserConfig) (*Advertiser, error) {
	a := &Advertiser{
		announcer:  config.Announcer,
		interfaces: config.Interfaces,
		live:       make(map[ServiceType]advertised),
	}
	if a.announcer == nil {
		a.announcer = zeroconfAnnouncer{}
	}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("discovery")
	}
	return a, nil
}

// Advertise announces st on port with the given TXT attributes. An empty
// instance is replaced by 16 random hex digits.
func (a *Advertiser) Advertise(st ServiceType, instance string, port int, txt RoleTXT) error {
	service := st.ServiceString()
	switch {
	case service == "":
		return ErrUnknownService
	case port < 1 || port > 65535:
		return ErrBadPort
	case len(instance) > MaxInstanceNameLength:
		return ErrBadInstance
	}
	if err := txt.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if _, ok := a.live[st]; ok {
		return ErrAdvertising
	}

	if instance == "" {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			return err
		}
		instance = fmt.Sprintf("%X", b)
	}

	handle, err := a.announcer.Announce(Announcement{
		Instance:   instance,
		Service:    service,
		Domain:     DefaultDomain,
		Port:       port,
		TXT:        txt.Encode(),
		Interfaces: a.interfaces,
	})
	if err != nil {
		return fmt.Errorf("announce %s: %w", service, err)
	}
	a.live[st] = advertised{handle: handle, instance: instance}

	if a.log != nil {
		a.log.Infof("advertising %s %q on port %d", service, instance, port)
	}
	return nil
}

// Withdraw removes the announcement of st.
func (a *Advertiser) Withdraw(st ServiceType) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	adv, ok := a.live[st]
	if !ok {
		return ErrNotAdvertising
	}
	adv.handle.Withdraw()
	delete(a.live, st)

	if a.log != nil {
		a.log.Infof("withdrew %s %q", st.ServiceString(), adv.instance)
	}
	return nil
}

// Close withdraws every announcement. The Advertiser cannot be reused.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	for _, adv := range a.live {
		adv.handle.Withdraw()
	}
	a.live = nil
	a.closed = true
	return nil
}

// Instance returns the instance name st is announced under, and whether
// it is announced at all.
func (a *Advertiser) Instance(st ServiceType) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	adv, ok := a.live[st]
	return adv.instance, ok
}
