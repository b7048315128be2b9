package cfddns

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns the first global unicast IPv4 address of the named interface.
// It is only useful on hosts whose interface holds the public address directly.
func InterfaceResolver(iface string) Resolver {
	return interfaceResolver{name: iface}
}

type interfaceResolver struct {
	name string
}

func (r interfaceResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	iface, err := net.InterfaceByName(r.name)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error getting interface %s by name: %w", r.name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error looking up addresses for interface %s: %w", r.name, err)
	}
	return firstGlobalIPv4(addrs)
}

// sharedAddressSpace is carrier-grade NAT space (RFC 6598).
// An address from it is never reachable from the internet.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func firstGlobalIPv4(addrs []net.Addr) (netip.Addr, error) {
	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fd64:9f44:fc30:0:b951:8b16:2812:a227/64
	for _, addr := range addrs {
		p, err := netip.ParsePrefix(addr.String())
		if err != nil {
			continue
		}
		ip := p.Addr().Unmap()
		if ip.Is4() && ip.IsGlobalUnicast() && !ip.IsPrivate() && !sharedAddressSpace.Contains(ip) {
			return ip, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("no public IPv4 address found among %d addresses", len(addrs))
}
