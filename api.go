package cfddns

import (
	"context"
	"net/netip"
)

// Resolver looks up the IPv4 address that DNS records should point at.
type Resolver interface {
	Resolve(context.Context) (netip.Addr, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(context.Context) (netip.Addr, error)

func (f ResolverFunc) Resolve(ctx context.Context) (netip.Addr, error) {
	return f(ctx)
}

// Provider is the subset of a DNS hosting API needed to keep A records up to date.
//
// Authentication is the implementation's concern and is expected to be set up when it is constructed.
type Provider interface {
	ListZones(ctx context.Context) ([]Zone, error)
	// ListAddressRecords returns the A records of a zone in ascending order.
	ListAddressRecords(ctx context.Context, zoneID string) ([]Record, error)
	CreateAddressRecord(ctx context.Context, zoneID string, params RecordParams) (Record, error)
	UpdateAddressRecord(ctx context.Context, zoneID string, recordID string, params RecordParams) (Record, error)
}

// Notifier delivers a human readable report of a pass.
type Notifier interface {
	Notify(ctx context.Context, m Mail) error
}

type Zone struct {
	ID   string
	Name string
}

// Record is an A record as reported by the provider.
type Record struct {
	ID   string
	Name string
	Addr netip.Addr
}

// RecordParams is the desired state of an A record for create and update calls.
type RecordParams struct {
	Name    string
	Addr    netip.Addr
	TTL     int
	Proxied bool
}

type Mail struct {
	From    string
	To      string
	Subject string
	Body    string
}
