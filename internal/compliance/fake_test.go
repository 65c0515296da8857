package compliance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opslynx/patchlynx/internal/vsphere"
)

// fakeAPI is an in-memory management server used by the package tests.
type fakeAPI struct {
	mu sync.Mutex

	hosts        map[string]vsphere.HostSummary
	groups       map[string][]string
	baselines    []vsphere.Baseline
	compliance   map[string][]vsphere.ComplianceDetail
	packages     map[string][]vsphere.Package
	installTimes map[string]time.Time

	// scanProgress is consumed one value per ScanStatus call; the last value
	// repeats once exhausted.
	scanProgress []int
	scanState    string
	scanErr      string

	startScanCalls     [][]string
	attachCalls        map[string][]string
	installTimeQueries []string
	statusCalls        int

	// onStartScan, when set, runs after a scan is recorded. Tests use it to
	// change host state between the trigger and the fetch.
	onStartScan func()
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		hosts:        map[string]vsphere.HostSummary{},
		groups:       map[string][]string{},
		compliance:   map[string][]vsphere.ComplianceDetail{},
		packages:     map[string][]vsphere.Package{},
		installTimes: map[string]time.Time{},
		attachCalls:  map[string][]string{},
		scanProgress: []int{100},
	}
}

func (f *fakeAPI) addHost(h vsphere.HostSummary, groups ...string) {
	f.hosts[h.Name] = h
	for _, g := range groups {
		f.groups[g] = append(f.groups[g], h.Name)
	}
}

func (f *fakeAPI) ListHosts(_ context.Context) ([]vsphere.HostSummary, error) {
	out := make([]vsphere.HostSummary, 0, len(f.hosts))
	for _, h := range f.hosts {
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeAPI) GroupHosts(_ context.Context, group string) ([]vsphere.HostSummary, error) {
	names, ok := f.groups[group]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", group, vsphere.ErrNotFound)
	}
	out := make([]vsphere.HostSummary, 0, len(names))
	for _, n := range names {
		out = append(out, f.hosts[n])
	}
	return out, nil
}

func (f *fakeAPI) FindHost(_ context.Context, name string) (*vsphere.HostSummary, error) {
	h, ok := f.hosts[name]
	if !ok {
		return nil, fmt.Errorf("host %s: %w", name, vsphere.ErrNotFound)
	}
	return &h, nil
}

func (f *fakeAPI) ListBaselines(_ context.Context) ([]vsphere.Baseline, error) {
	return f.baselines, nil
}

func (f *fakeAPI) AttachBaselines(_ context.Context, host string, baselineIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachCalls[host] = append(f.attachCalls[host], baselineIDs...)
	return nil
}

func (f *fakeAPI) StartScan(_ context.Context, hosts []string) (*vsphere.ScanHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startScanCalls = append(f.startScanCalls, hosts)
	if f.onStartScan != nil {
		f.onStartScan()
	}
	return &vsphere.ScanHandle{TaskID: fmt.Sprintf("task-%d", len(f.startScanCalls)), Hosts: hosts}, nil
}

func (f *fakeAPI) ScanStatus(_ context.Context, _ *vsphere.ScanHandle) (*vsphere.ScanStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	if i >= len(f.scanProgress) {
		i = len(f.scanProgress) - 1
	}
	f.statusCalls++
	return &vsphere.ScanStatus{
		Progress: f.scanProgress[i],
		State:    f.scanState,
		Error:    f.scanErr,
	}, nil
}

func (f *fakeAPI) HostCompliance(_ context.Context, host string) ([]vsphere.ComplianceDetail, error) {
	return f.compliance[host], nil
}

func (f *fakeAPI) HostPackages(_ context.Context, host string) ([]vsphere.Package, error) {
	return f.packages[host], nil
}

func (f *fakeAPI) PackageInstallTime(_ context.Context, host, pkg string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := host + "/" + pkg
	f.installTimeQueries = append(f.installTimeQueries, key)
	ts, ok := f.installTimes[key]
	if !ok {
		return time.Time{}, fmt.Errorf("package %s: %w", key, vsphere.ErrNotFound)
	}
	return ts, nil
}

var _ vsphere.API = (*fakeAPI)(nil)
