package cfddns

import (
	"context"
	"fmt"
	"net/netip"
	"slices"

	"github.com/go-logr/logr"
)

// autoTTL asks the provider to pick the shortest TTL it supports.
const autoTTL = 1

type Action int

const (
	ActionCreate Action = iota + 1
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Effect is a single provider write decided by a pass.
type Effect struct {
	Action   Action
	Host     DesiredHost
	RecordID string     // empty for ActionCreate
	From     netip.Addr // zero for ActionCreate
	To       netip.Addr
}

// Params returns the record state an effect writes.
// Records are never proxied so that they resolve to the address itself.
func (e Effect) Params() RecordParams {
	return RecordParams{
		Name:    e.Host.FQDN,
		Addr:    e.To,
		TTL:     autoTTL,
		Proxied: false,
	}
}

// Reconcile brings the A records of hosts in line with ip.
//
// Records are fetched once per zone.
// The returned effects are everything the pass decided to write, in host order;
// applied counts how many of them the provider accepted.
// Writes stop at the first provider error and nothing already written is rolled back,
// so a failed pass converges on a later one.
func Reconcile(ctx context.Context, p Provider, hosts []DesiredHost, ip netip.Addr, changes *ChangeLog, logger logr.Logger) (effects []Effect, applied int, err error) {
	if !ip.Is4() {
		return nil, 0, fmt.Errorf("%w: %s is not an IPv4 address", ErrIPResolution, ip)
	}

	current, err := fetchRecords(ctx, p, hosts, logger)
	if err != nil {
		return nil, 0, err
	}

	effects = plan(hosts, current, ip, changes)
	applied, err = apply(ctx, p, effects, logger)
	return effects, applied, err
}

// fetchRecords returns the A records of every zone in hosts, indexed by zone ID then by name.
func fetchRecords(ctx context.Context, p Provider, hosts []DesiredHost, logger logr.Logger) (map[string]map[string]Record, error) {
	zones := map[string]map[string]Record{}
	for _, h := range hosts {
		if _, fetched := zones[h.ZoneID]; fetched {
			continue
		}
		logger.V(1).Info("listing A records", "zone", h.Zone, "zoneID", h.ZoneID)
		records, err := p.ListAddressRecords(ctx, h.ZoneID)
		if err != nil {
			return nil, fmt.Errorf("%w: listing records for zone %s: %w", ErrProvider, h.Zone, err)
		}
		idx, dups := indexRecords(records)
		for _, name := range dups {
			logger.Info("zone has more than one A record with the same name; using the lowest record ID", "zone", h.Zone, "name", name, "id", idx[name].ID)
		}
		zones[h.ZoneID] = idx
	}
	return zones, nil
}

// indexRecords maps records by name.
// When a name appears more than once the record with the lowest ID is kept,
// and the name is reported in dups.
func indexRecords(records []Record) (idx map[string]Record, dups []string) {
	idx = make(map[string]Record, len(records))
	for _, r := range records {
		prev, found := idx[r.Name]
		if !found {
			idx[r.Name] = r
			continue
		}
		if !slices.Contains(dups, r.Name) {
			dups = append(dups, r.Name)
		}
		if r.ID < prev.ID {
			idx[r.Name] = r
		}
	}
	return idx, dups
}

// plan compares each host against the current records and decides what to write.
func plan(hosts []DesiredHost, current map[string]map[string]Record, ip netip.Addr, changes *ChangeLog) []Effect {
	var effects []Effect
	for _, h := range hosts {
		r, found := current[h.ZoneID][h.FQDN]
		switch {
		case !found:
			effects = append(effects, Effect{Action: ActionCreate, Host: h, To: ip})
			changes.MarkNotable()
			changes.Appendf("creating: %s %s", h.FQDN, ip)
		case r.Addr != ip:
			effects = append(effects, Effect{Action: ActionUpdate, Host: h, RecordID: r.ID, From: r.Addr, To: ip})
			changes.MarkNotable()
			changes.Appendf("updating: %s %s -> %s", h.FQDN, r.Addr, ip)
		default:
			changes.Appendf("unchanged: %s %s", h.FQDN, ip)
		}
	}
	return effects
}

func apply(ctx context.Context, p Provider, effects []Effect, logger logr.Logger) (applied int, err error) {
	for _, e := range effects {
		switch e.Action {
		case ActionCreate:
			logger.Info("creating A record", "name", e.Host.FQDN, "zone", e.Host.Zone, "addr", e.To)
			r, err := p.CreateAddressRecord(ctx, e.Host.ZoneID, e.Params())
			if err != nil {
				return applied, fmt.Errorf("%w: creating %s: %w", ErrProvider, e.Host.FQDN, err)
			}
			logger.V(1).Info("created A record", "name", r.Name, "id", r.ID)
		case ActionUpdate:
			logger.Info("updating A record", "name", e.Host.FQDN, "zone", e.Host.Zone, "id", e.RecordID, "from", e.From, "to", e.To)
			if _, err := p.UpdateAddressRecord(ctx, e.Host.ZoneID, e.RecordID, e.Params()); err != nil {
				return applied, fmt.Errorf("%w: updating %s: %w", ErrProvider, e.Host.FQDN, err)
			}
		default:
			return applied, fmt.Errorf("unknown action %s for %s", e.Action, e.Host.FQDN)
		}
		applied++
	}
	return applied, nil
}
