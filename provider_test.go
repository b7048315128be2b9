package cfddns

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
)

var errFake = errors.New("fake provider failure")

type call struct {
	Method   string
	ZoneID   string
	RecordID string
	Params   RecordParams
}

// fakeProvider is an in-memory Provider that records every call.
// Writes change the stored records so that later passes observe them.
type fakeProvider struct {
	zones   []Zone
	records map[string][]Record

	listZonesErr error
	listErr      error
	// failWrite is the 1-based index of the write call that fails; 0 never fails.
	failWrite int

	calls  []call
	writes int
	nextID int
}

func newFakeProvider(zones ...Zone) *fakeProvider {
	return &fakeProvider{zones: zones, records: map[string][]Record{}}
}

func (f *fakeProvider) add(zoneID, id, name, addr string) {
	f.records[zoneID] = append(f.records[zoneID], Record{ID: id, Name: name, Addr: netip.MustParseAddr(addr)})
}

func (f *fakeProvider) writeCalls() []call {
	var out []call
	for _, c := range f.calls {
		if c.Method == "create" || c.Method == "update" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeProvider) ListZones(ctx context.Context) ([]Zone, error) {
	f.calls = append(f.calls, call{Method: "zones"})
	if f.listZonesErr != nil {
		return nil, f.listZonesErr
	}
	return f.zones, nil
}

func (f *fakeProvider) ListAddressRecords(ctx context.Context, zoneID string) ([]Record, error) {
	f.calls = append(f.calls, call{Method: "list", ZoneID: zoneID})
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Record(nil), f.records[zoneID]...), nil
}

func (f *fakeProvider) CreateAddressRecord(ctx context.Context, zoneID string, params RecordParams) (Record, error) {
	f.calls = append(f.calls, call{Method: "create", ZoneID: zoneID, Params: params})
	if err := f.write(); err != nil {
		return Record{}, err
	}
	f.nextID++
	r := Record{ID: fmt.Sprintf("new-%d", f.nextID), Name: params.Name, Addr: params.Addr}
	f.records[zoneID] = append(f.records[zoneID], r)
	return r, nil
}

func (f *fakeProvider) UpdateAddressRecord(ctx context.Context, zoneID string, recordID string, params RecordParams) (Record, error) {
	f.calls = append(f.calls, call{Method: "update", ZoneID: zoneID, RecordID: recordID, Params: params})
	if err := f.write(); err != nil {
		return Record{}, err
	}
	for i, r := range f.records[zoneID] {
		if r.ID == recordID {
			f.records[zoneID][i].Name = params.Name
			f.records[zoneID][i].Addr = params.Addr
			return f.records[zoneID][i], nil
		}
	}
	return Record{}, fmt.Errorf("record %s not found", recordID)
}

func (f *fakeProvider) write() error {
	f.writes++
	if f.writes == f.failWrite {
		return errFake
	}
	return nil
}
