package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslynx/patchlynx/internal/vsphere"
	"github.com/opslynx/patchlynx/pkg/models"
)

func fastPoll() PollConfig {
	return PollConfig{Interval: time.Millisecond, Timeout: time.Second}
}

func TestPipelineEndToEnd(t *testing.T) {
	api := newFakeAPI()
	api.addHost(vsphere.HostSummary{
		Name: "esx-01.lab", State: "connected",
		Vendor: "VMware", Product: "VMware ESXi", Version: "7.0.3",
		Build: "21930508", APIVersion: "7.0.3",
	}, "prod")
	api.baselines = []vsphere.Baseline{{ID: "bl-1", Name: "Critical Host Patches (Predefined)"}}
	api.compliance["esx-01.lab"] = []vsphere.ComplianceDetail{{
		Baseline: vsphere.Baseline{ID: "bl-1", Name: "Critical Host Patches (Predefined)"},
		Status:   "compliant",
		LastScan: day(2024, 4, 2),
		CompliantPatches: []vsphere.PatchInfo{{
			Name:        "Updates esx-base",
			VendorID:    "ESXi70U3-21930508",
			ReleaseDate: day(2024, 3, 5),
			Description: "Rollup bulletin, no link published.",
		}},
	}}
	api.packages["esx-01.lab"] = []vsphere.Package{
		{Name: "esx-base", Version: "7.0.3-0.35.21930508", Vendor: "VMware", InstallDate: day(2024, 3, 20)},
	}
	api.scanProgress = []int{50, 100}

	p := NewPipeline(api, Config{Server: "vcenter.lab", Poll: fastPoll()}, testLogger(), nil)
	run, err := p.Run(context.Background(), Filter{Groups: []string{"prod"}})
	require.NoError(t, err)

	require.Len(t, api.startScanCalls, 1)
	assert.Equal(t, []string{"esx-01.lab"}, api.startScanCalls[0])

	require.Len(t, run.Compliance, 1)
	assert.Equal(t, models.StatusCompliant, run.Compliance[0].Status)
	assert.Equal(t, "VMware ESXi", run.Compliance[0].ProductName)

	require.Len(t, run.Installed, 1)
	assert.Equal(t, "ESXi70U3-21930508", run.Installed[0].VendorID)
	assert.Equal(t, 15, run.Installed[0].DaysBetween)
	assert.Empty(t, run.Installed[0].ReferenceURL, "description without a link yields an empty reference")

	assert.Empty(t, run.Missing)
	assert.Empty(t, run.Skipped)
	assert.NotEmpty(t, run.RunID)
	assert.False(t, run.EndTime.Before(run.StartTime))
}

func TestPipelineSkipsIneligibleTargets(t *testing.T) {
	api := newFakeAPI()
	api.addHost(vsphere.HostSummary{
		Name: "esx-01.lab", State: "connected",
		Vendor: "VMware", Build: "21930508", APIVersion: "7.0.3",
	}, "prod")
	api.addHost(vsphere.HostSummary{Name: "esx-02.lab", State: "disconnected"}, "prod")
	api.baselines = []vsphere.Baseline{{ID: "bl-1", Name: "Critical Host Patches (Predefined)"}}
	api.compliance["esx-01.lab"] = []vsphere.ComplianceDetail{{
		Baseline: vsphere.Baseline{ID: "bl-1", Name: "Critical Host Patches (Predefined)"},
		Status:   "compliant",
	}}

	p := NewPipeline(api, Config{Server: "vcenter.lab", Poll: fastPoll()}, testLogger(), nil)
	run, err := p.Run(context.Background(), Filter{Groups: []string{"prod"}})
	require.NoError(t, err)

	require.Len(t, run.Skipped, 1)
	assert.Equal(t, "esx-02.lab", run.Skipped[0].Target)
	assert.Equal(t, models.StateDisconnected, run.Skipped[0].State)

	require.Len(t, api.startScanCalls, 1)
	assert.Equal(t, []string{"esx-01.lab"}, api.startScanCalls[0], "disconnected target never reaches the scan")

	require.Len(t, run.Compliance, 1)
	assert.Equal(t, "esx-01.lab", run.Compliance[0].Target)
}

func TestPipelineEmptyFilterTriggersNoScan(t *testing.T) {
	api := newFakeAPI()
	api.addHost(vsphere.HostSummary{Name: "esx-01.lab", State: "connected"})

	p := NewPipeline(api, Config{Server: "vcenter.lab", Poll: fastPoll()}, testLogger(), nil)
	run, err := p.Run(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Empty(t, api.startScanCalls)
	assert.True(t, run.Empty())
	assert.Empty(t, run.Targets)
}

func TestPipelineSkipsTargetLostBeforeFetch(t *testing.T) {
	api := newFakeAPI()
	api.addHost(vsphere.HostSummary{
		Name: "esx-01.lab", State: "connected",
		Vendor: "VMware", Build: "21930508", APIVersion: "7.0.3",
	}, "prod")
	api.baselines = []vsphere.Baseline{{ID: "bl-1", Name: "Critical Host Patches (Predefined)"}}

	// The host drops after the scan is queued, before the fetch.
	api.onStartScan = func() {
		h := api.hosts["esx-01.lab"]
		h.State = "notResponding"
		api.hosts["esx-01.lab"] = h
	}

	p := NewPipeline(api, Config{Server: "vcenter.lab", Poll: fastPoll()}, testLogger(), nil)
	run, err := p.Run(context.Background(), Filter{Groups: []string{"prod"}})
	require.NoError(t, err)
	require.Len(t, run.Skipped, 1)
	assert.Equal(t, "unreachable at fetch time", run.Skipped[0].Reason)
	assert.Empty(t, run.Compliance)
}
