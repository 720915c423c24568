package discovery

import (
	"net"
	"net/netip"
	"slices"
)

// Dial preference, lowest first. Peer tables key on the caller's IPv4
// address, so routable IPv4 leads.
const (
	rankIPv4 = iota
	rankGlobal6
	rankULA
	rankLinkLocal
	rankOther
	rankLoopback
	rankMulticast
	rankInvalid
)

func rank(a netip.Addr) int {
	switch {
	case !a.IsValid():
		return rankInvalid
	case a.IsLoopback():
		return rankLoopback
	case a.Is4():
		return rankIPv4
	case a.IsMulticast():
		return rankMulticast
	case a.IsPrivate():
		return rankULA
	case a.IsLinkLocalUnicast():
		return rankLinkLocal
	case a.IsGlobalUnicast():
		return rankGlobal6
	}
	return rankOther
}

// orderAddrs merges the address lists of an answer, unmapping IPv4-in-IPv6
// and sorting stably by dial preference.
func orderAddrs(lists ...[]net.IP) []netip.Addr {
	var out []netip.Addr
	for _, list := range lists {
		for _, ip := range list {
			if a, ok := netip.AddrFromSlice(ip); ok {
				out = append(out, a.Unmap())
			}
		}
	}
	slices.SortStableFunc(out, func(x, y netip.Addr) int { return rank(x) - rank(y) })
	return out
}

// dialable reports whether a can be dialed as is. mDNS answers carry no
// zone, which IPv6 link-local addresses need.
func dialable(a netip.Addr) bool {
	return a.IsValid() && !(a.Is6() && a.IsLinkLocalUnicast())
}
