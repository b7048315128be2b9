package cfddns

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"
)

func newCloudflareProvider(token string, opts ...cloudflare.Option) (cf *cloudflareProvider, err error) {
	if token == "" {
		return nil, fmt.Errorf("%w: cloudflare api token cannot be empty", ErrConfig)
	}
	cf = new(cloudflareProvider)
	cf.api, err = cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	cf.logger = logr.Discard()
	cf.comment = "managed by cfddns"
	cf.tags = make(map[string][]string)
	return cf, nil
}

// cloudflareProvider implements cfddns.Provider.
//
// It should be constructed using newCloudflareProvider.
type cloudflareProvider struct {
	api     *cloudflare.API
	logger  logr.Logger
	comment string // optional comment to attach to each new DNS entry

	// tags holds the tags of each listed record by record ID.
	// An update without tags would clear them.
	mu   sync.Mutex
	tags map[string][]string
}

func (cf *cloudflareProvider) SetLogger(l logr.Logger) { cf.logger = l }

func (cf *cloudflareProvider) ListZones(ctx context.Context) ([]Zone, error) {
	zones, err := cf.api.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing zones: %w", err)
	}
	cf.logger.V(1).Info("listed zones", "count", len(zones))
	out := make([]Zone, 0, len(zones))
	for _, z := range zones {
		out = append(out, Zone{ID: z.ID, Name: z.Name})
	}
	return out, nil
}

func (cf *cloudflareProvider) ListAddressRecords(ctx context.Context, zoneID string) ([]Record, error) {
	records, _, err := cf.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.ListDNSRecordsParams{
		Type:      "A",
		Direction: cloudflare.ListDirectionAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing A records: %w", err)
	}
	cf.logger.V(1).Info("found existing records", "zoneID", zoneID, "count", len(records))

	out := make([]Record, 0, len(records))
	cf.mu.Lock()
	defer cf.mu.Unlock()
	for _, r := range records {
		rec, err := fromCloudflare(r)
		if err != nil {
			return nil, err
		}
		cf.tags[r.ID] = r.Tags
		out = append(out, rec)
	}
	return out, nil
}

func (cf *cloudflareProvider) CreateAddressRecord(ctx context.Context, zoneID string, params RecordParams) (Record, error) {
	if !params.Addr.Is4() {
		return Record{}, fmt.Errorf("refusing to create A record for %s with address %s", params.Name, params.Addr)
	}
	record, err := cf.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.CreateDNSRecordParams{
		Type:    "A",
		Name:    params.Name,
		Content: params.Addr.String(),
		TTL:     params.TTL,
		Proxied: cloudflare.BoolPtr(params.Proxied),
		Comment: cf.comment,
	})
	if err != nil {
		return Record{}, fmt.Errorf("error creating DNS record: %w", err)
	}
	cf.logger.V(1).Info("successfully added record", "id", record.ID, "name", record.Name)
	return fromCloudflare(record)
}

func (cf *cloudflareProvider) UpdateAddressRecord(ctx context.Context, zoneID string, recordID string, params RecordParams) (Record, error) {
	if !params.Addr.Is4() {
		return Record{}, fmt.Errorf("refusing to update A record for %s with address %s", params.Name, params.Addr)
	}
	tags, err := cf.recordTags(ctx, zoneID, recordID)
	if err != nil {
		return Record{}, err
	}
	record, err := cf.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.UpdateDNSRecordParams{
		ID:      recordID,
		Type:    "A",
		Name:    params.Name,
		Content: params.Addr.String(),
		TTL:     params.TTL,
		Proxied: cloudflare.BoolPtr(params.Proxied),
		Tags:    tags,
	})
	if err != nil {
		return Record{}, fmt.Errorf("error updating DNS record %s: %w", recordID, err)
	}
	cf.logger.V(1).Info("successfully updated record", "id", record.ID, "name", record.Name)
	return fromCloudflare(record)
}

// recordTags returns the tags to send with an update of recordID.
// Records that were not listed first are fetched.
func (cf *cloudflareProvider) recordTags(ctx context.Context, zoneID, recordID string) ([]string, error) {
	cf.mu.Lock()
	tags, ok := cf.tags[recordID]
	cf.mu.Unlock()
	if !ok {
		r, err := cf.api.GetDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), recordID)
		if err != nil {
			return nil, fmt.Errorf("error fetching DNS record %s: %w", recordID, err)
		}
		tags = r.Tags
		cf.mu.Lock()
		cf.tags[recordID] = tags
		cf.mu.Unlock()
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func fromCloudflare(r cloudflare.DNSRecord) (Record, error) {
	a, err := netip.ParseAddr(r.Content)
	if err != nil {
		return Record{}, fmt.Errorf("error parsing IP from content of record %s: %w", r.ID, err)
	}
	return Record{ID: r.ID, Name: r.Name, Addr: a.Unmap()}, nil
}

// VerifyToken checks with Cloudflare that token is usable.
func VerifyToken(ctx context.Context, token string, opts ...cloudflare.Option) error {
	api, err := cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return fmt.Errorf("error creating api client: %w", err)
	}
	result, err := api.VerifyAPIToken(ctx)
	if err != nil {
		return fmt.Errorf("unable to verify api token: %w", err)
	}
	if result.Status != "active" {
		return errors.New("expected api token status to be \"active\"; got \"" + result.Status + "\"")
	}
	return nil
}
