package discovery

import (
	"context"
	"net/netip"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// Default query windows.
const (
	DefaultBrowseTimeout = 10 * time.Second
	DefaultLookupTimeout = 5 * time.Second
)

// Peer is a role instance found on the network.
type Peer struct {
	Type     ServiceType
	Instance string
	Host     string
	Port     int
	Addrs    []netip.Addr // best first
	TXT      map[string]string
}

// Addr returns host:port for the best address that can be dialed.
func (p *Peer) Addr() (string, error) {
	for _, a := range p.Addrs {
		if dialable(a) {
			return netip.AddrPortFrom(a, uint16(p.Port)).String(), nil
		}
	}
	return "", ErrNoAddress
}

// ID returns the advertised role identity.
func (p *Peer) ID() string {
	return p.TXT[TXTKeyID]
}

func peerFrom(e *zeroconf.ServiceEntry, st ServiceType) Peer {
	return Peer{
		Type:     st,
		Instance: e.Instance,
		Host:     e.HostName,
		Port:     e.Port,
		Addrs:    orderAddrs(e.AddrIPv4, e.AddrIPv6),
		TXT:      ParseTXT(e.Text),
	}
}

// Query selects services. An empty Instance browses every instance.
type Query struct {
	Service  string
	Instance string
	Domain   string
}

// Querier runs mDNS queries. Query calls found for each answer and
// returns once ctx is done or no more answers can arrive.
type Querier interface {
	Query(ctx context.Context, q Query, found func(*zeroconf.ServiceEntry)) error
}

type zeroconfQuerier struct {
	r *zeroconf.Resolver
}

func (z zeroconfQuerier) Query(ctx context.Context, q Query, found func(*zeroconf.ServiceEntry)) error {
	// zeroconf closes answers when ctx is done.
	answers := make(chan *zeroconf.ServiceEntry)
	var err error
	if q.Instance == "" {
		err = z.r.Browse(ctx, q.Service, q.Domain, answers)
	} else {
		err = z.r.Lookup(ctx, q.Instance, q.Service, q.Domain, answers)
	}
	if err != nil {
		return err
	}
	for e := range answers {
		found(e)
	}
	return nil
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Querier answers queries. If nil, grandcat/zeroconf on all
	// interfaces is used.
	Querier Querier

	// BrowseTimeout and LookupTimeout bound queries whose context has no
	// deadline. Zero selects the defaults.
	BrowseTimeout time.Duration
	LookupTimeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Resolver finds upstream roles via DNS-SD.
type Resolver struct {
	querier Querier
	browse  time.Duration
	lookup  time.Duration
	log     logging.LeveledLogger
}

// NewResolver creates a Resolver.
func NewResolver(config ResolverConfig) (*Resolver, error) {
	r := &Resolver{
		querier: config.Querier,
		browse:  config.BrowseTimeout,
		lookup:  config.LookupTimeout,
	}
	if r.querier == nil {
		zr, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, err
		}
		r.querier = zeroconfQuerier{r: zr}
	}
	if r.browse == 0 {
		r.browse = DefaultBrowseTimeout
	}
	if r.lookup == 0 {
		r.lookup = DefaultLookupTimeout
	}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("discovery")
	}
	return r, nil
}

func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Browse streams every instance of st. The channel closes when the query
// ends. Callers that stop receiving early must cancel ctx.
func (r *Resolver) Browse(ctx context.Context, st ServiceType) (<-chan Peer, error) {
	service := st.ServiceString()
	if service == "" {
		return nil, ErrUnknownService
	}

	ctx, cancel := bounded(ctx, r.browse)
	peers := make(chan Peer)
	go func() {
		defer close(peers)
		defer cancel()
		err := r.querier.Query(ctx, Query{Service: service, Domain: DefaultDomain}, func(e *zeroconf.ServiceEntry) {
			if e == nil {
				return
			}
			select {
			case peers <- peerFrom(e, st):
			case <-ctx.Done():
			}
		})
		if err != nil && r.log != nil {
			r.log.Debugf("browse %s: %v", service, err)
		}
	}()
	return peers, nil
}

// Lookup finds one named instance of st.
func (r *Resolver) Lookup(ctx context.Context, st ServiceType, instance string) (*Peer, error) {
	service := st.ServiceString()
	if service == "" {
		return nil, ErrUnknownService
	}
	if instance == "" {
		return nil, ErrBadInstance
	}

	ctx, cancel := bounded(ctx, r.lookup)
	defer cancel()

	first := make(chan Peer, 1)
	done := make(chan error, 1)
	go func() {
		q := Query{Service: service, Instance: instance, Domain: DefaultDomain}
		done <- r.querier.Query(ctx, q, func(e *zeroconf.ServiceEntry) {
			if e == nil {
				return
			}
			select {
			case first <- peerFrom(e, st):
			default:
			}
		})
	}()

	select {
	case p := <-first:
		cancel()
		<-done
		return &p, nil
	case err := <-done:
		select {
		case p := <-first:
			return &p, nil
		default:
		}
		if err != nil && r.log != nil {
			r.log.Debugf("lookup %s.%s: %v", instance, service, err)
		}
		switch ctx.Err() {
		case nil:
			return nil, ErrNotFound
		case context.DeadlineExceeded:
			return nil, ErrTimeout
		default:
			return nil, ctx.Err()
		}
	}
}

// Resolve returns a dialable host:port for st. A named instance is looked
// up directly. Otherwise the first answer with a usable address wins.
func (r *Resolver) Resolve(ctx context.Context, st ServiceType, instance string) (string, error) {
	if instance != "" {
		p, err := r.Lookup(ctx, st, instance)
		if err != nil {
			return "", err
		}
		return p.Addr()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	peers, err := r.Browse(ctx, st)
	if err != nil {
		return "", err
	}
	for p := range peers {
		addr, err := p.Addr()
		if err != nil {
			continue
		}
		if r.log != nil {
			r.log.Infof("resolved %s %q at %s", st, p.Instance, addr)
		}
		cancel()
		for range peers {
		}
		return addr, nil
	}
	return "", ErrNotFound
}
