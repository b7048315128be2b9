package cfddns

import (
	"context"
	"fmt"
	"net/netip"
)

// FromString constructs a resolver that always returns addr.
func FromString(addr string) (Resolver, error) {
	ip, err := parseIPv4(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return stringResolver(ip), nil
}

type stringResolver netip.Addr

func (s stringResolver) Resolve(context.Context) (netip.Addr, error) {
	return netip.Addr(s), nil
}
