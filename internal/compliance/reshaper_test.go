package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslynx/patchlynx/internal/vsphere"
	"github.com/opslynx/patchlynx/pkg/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReshapeCollapsesPackagesOfOnePatch(t *testing.T) {
	released := day(2024, 3, 5)
	installed := day(2024, 3, 20)

	res := &FetchResult{
		Target: models.Target{Name: "esx-01.lab"},
		Host:   vsphere.HostSummary{Product: "VMware ESXi", Version: "7.0.3", Build: "21930508"},
		Details: []vsphere.ComplianceDetail{{
			Baseline: vsphere.Baseline{Name: "Critical Host Patches"},
			Status:   "compliant",
			CompliantPatches: []vsphere.PatchInfo{{
				Name:        "Updates esx-base, esx-update, vsan",
				VendorID:    "ESXi70U3-22348816",
				ReleaseDate: released,
				Description: "Fixes CVE issues. See https://vmware.com/kb/90001 for details.",
			}},
		}},
		Packages: []vsphere.Package{
			{Name: "esx-base", Vendor: "VMware", InstallDate: installed},
			{Name: "esx-update", Vendor: "VMware", InstallDate: installed},
		},
	}

	out := NewReshaper(testLogger()).Reshape(res)
	require.Len(t, out.Installed, 1, "two packages of the same patch must collapse into one record")
	rec := out.Installed[0]
	assert.Equal(t, []string{"esx-base", "esx-update"}, rec.Packages)
	assert.Equal(t, "ESXi70U3-22348816", rec.VendorID)
	assert.Equal(t, 15, rec.DaysBetween)
	assert.Equal(t, "https://vmware.com/kb/90001", rec.ReferenceURL)
}

func TestReshapeEmitsComplianceAndMissingRows(t *testing.T) {
	res := &FetchResult{
		Target: models.Target{Name: "esx-02.lab"},
		Host:   vsphere.HostSummary{Product: "VMware ESXi", Version: "7.0.3", Build: "21930508"},
		Details: []vsphere.ComplianceDetail{{
			Baseline: vsphere.Baseline{Name: "Critical Host Patches"},
			Status:   "nonCompliant",
			LastScan: day(2024, 4, 1),
			NonCompliantPatches: []vsphere.PatchInfo{{
				Name:        "Security-only update",
				VendorID:    "ESXi70U3s-23000000",
				ReleaseDate: day(2024, 3, 28),
			}},
		}},
	}

	out := NewReshaper(testLogger()).Reshape(res)
	require.Len(t, out.Compliance, 1)
	assert.Equal(t, models.StatusNonCompliant, out.Compliance[0].Status)
	assert.Equal(t, day(2024, 4, 1), out.Compliance[0].LastPatched)

	require.Len(t, out.Missing, 1)
	assert.Equal(t, "ESXi70U3s-23000000", out.Missing[0].VendorID)
	assert.Empty(t, out.Missing[0].ReferenceURL)
	assert.Empty(t, out.Installed)
}

func TestReshapeIgnoresCatalogOlderThanSample(t *testing.T) {
	res := &FetchResult{
		Target:            models.Target{Name: "esx-01.lab"},
		Host:              vsphere.HostSummary{Build: "21930508"},
		SampleReleaseDate: day(2024, 1, 1),
		Details: []vsphere.ComplianceDetail{{
			Baseline: vsphere.Baseline{Name: "Critical Host Patches"},
			Status:   "compliant",
			CompliantPatches: []vsphere.PatchInfo{
				{Name: "Updates esx-base", VendorID: "old", ReleaseDate: day(2023, 6, 1)},
				{Name: "Updates esx-base", VendorID: "new", ReleaseDate: day(2024, 2, 1)},
			},
		}},
		Packages: []vsphere.Package{
			{Name: "esx-base", Vendor: "VMware", InstallDate: day(2024, 2, 10)},
		},
	}

	out := NewReshaper(testLogger()).Reshape(res)
	require.Len(t, out.Installed, 1)
	assert.Equal(t, "new", out.Installed[0].VendorID)
}

func TestPatchNameMatches(t *testing.T) {
	tests := []struct {
		patch, pkg string
		want       bool
	}{
		{"Updates esx-base, esx-update, vsan", "esx-base", true},
		{"Updates esx-base, esx-update, vsan", "vsan", true},
		{"Updates ESX-Base", "esx-base", true},
		{"Updates esx-base", "esx", true},
		{"Updates tools-light", "esx-base", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, patchNameMatches(tt.patch, tt.pkg), "%q vs %q", tt.patch, tt.pkg)
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, models.StatusCompliant, parseStatus("Compliant"))
	assert.Equal(t, models.StatusNonCompliant, parseStatus("nonCompliant"))
	assert.Equal(t, models.StatusNonCompliant, parseStatus("non-compliant"))
	assert.Equal(t, models.StatusUnknown, parseStatus("incompatible"))
}
