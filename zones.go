package cfddns

import (
	"context"
	"errors"
	"fmt"
)

// DesiredHost is a hostname that should point at our IP,
// along with the provider zone that owns it.
type DesiredHost struct {
	FQDN   string
	Zone   string
	ZoneID string
}

// ZoneMap maps zone names to provider zone IDs.
type ZoneMap map[string]string

// NewZoneMap lists every zone visible to the provider credentials and indexes them by name.
func NewZoneMap(ctx context.Context, p Provider) (ZoneMap, error) {
	zones, err := p.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing zones: %w", ErrProvider, err)
	}
	zm := make(ZoneMap, len(zones))
	for _, z := range zones {
		zm[z.Name] = z.ID
	}
	return zm, nil
}

// Resolve returns the ID of the named zone.
func (zm ZoneMap) Resolve(name string) (string, error) {
	id, found := zm[name]
	if !found {
		return "", fmt.Errorf("%w: %q is not visible to the provider credentials", ErrUnknownZone, name)
	}
	return id, nil
}

// DesiredHosts splits each hostname and resolves its zone.
// Every bad name is reported, not just the first.
func (zm ZoneMap) DesiredHosts(hostnames []string) ([]DesiredHost, error) {
	var errs []error
	hosts := make([]DesiredHost, 0, len(hostnames))
	for _, h := range hostnames {
		fqdn, zone, err := SplitHostname(h)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id, err := zm.Resolve(zone)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", fqdn, err))
			continue
		}
		hosts = append(hosts, DesiredHost{FQDN: fqdn, Zone: zone, ZoneID: id})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return hosts, nil
}
