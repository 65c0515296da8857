package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opslynx/patchlynx/internal/vsphere"
	"github.com/opslynx/patchlynx/pkg/models"
	"github.com/opslynx/patchlynx/pkg/utils"
)

// HostUnavailableError marks a target that cannot be fetched in its current
// connection state. The pipeline converts it into a skip-report entry; it is
// never fatal to the run.
type HostUnavailableError struct {
	Name  string
	State models.ConnectionState
}

func (e *HostUnavailableError) Error() string {
	return fmt.Sprintf("host %s is %s", e.Name, e.State)
}

// FetchResult carries everything the reshaper needs for one target.
type FetchResult struct {
	Target  models.Target
	Host    vsphere.HostSummary
	Details []vsphere.ComplianceDetail

	// SampleInstallDate is the install date of the baseline rollup package
	// whose version matches the host build; SampleReleaseDate is the catalog
	// release date of the corresponding patch. Both may be zero when no
	// sample exists (freshly imaged host).
	SampleInstallDate time.Time
	SampleReleaseDate time.Time

	// Packages holds the host's vendor packages installed on or after
	// SampleInstallDate, install dates already corrected for platform quirks.
	Packages []vsphere.Package
}

// Fetcher retrieves the post-scan compliance data for one target at a time.
type Fetcher struct {
	api    vsphere.API
	logger *logrus.Logger
}

func NewFetcher(api vsphere.API, logger *logrus.Logger) *Fetcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Fetcher{api: api, logger: logger}
}

func (f *Fetcher) Fetch(ctx context.Context, target models.Target) (*FetchResult, error) {
	host, err := f.api.FindHost(ctx, target.Name)
	if err != nil {
		return nil, fmt.Errorf("refresh host %s: %w", target.Name, err)
	}
	state := models.ParseConnectionState(host.State)
	if !state.Eligible() {
		return nil, &HostUnavailableError{Name: target.Name, State: state}
	}

	details, err := f.api.HostCompliance(ctx, target.Name)
	if err != nil {
		return nil, fmt.Errorf("compliance breakdown for %s: %w", target.Name, err)
	}

	packages, err := f.api.HostPackages(ctx, target.Name)
	if err != nil {
		return nil, fmt.Errorf("packages for %s: %w", target.Name, err)
	}

	caps := vsphere.DetectCapabilities(host.APIVersion)
	packages = f.strategyFor(caps).apply(ctx, target.Name, packages)

	result := &FetchResult{
		Target:  target,
		Host:    *host,
		Details: details,
	}

	sample := findSamplePackage(packages, host.Build)
	if sample == nil {
		f.logger.Debugf("No installed package matches build %s on %s", host.Build, target.Name)
		return result, nil
	}
	result.SampleInstallDate = sample.InstallDate
	result.SampleReleaseDate = findSampleReleaseDate(details, host.Build)

	for _, pkg := range packages {
		if pkg.Vendor != sample.Vendor {
			continue
		}
		if pkg.InstallDate.Before(result.SampleInstallDate) {
			continue
		}
		result.Packages = append(result.Packages, pkg)
	}
	return result, nil
}

// findSamplePackage locates the installed baseline rollup: the package whose
// version string carries the host's build number.
func findSamplePackage(packages []vsphere.Package, build string) *vsphere.Package {
	if build == "" {
		return nil
	}
	for i := range packages {
		if strings.Contains(packages[i].Version, build) {
			return &packages[i]
		}
	}
	return nil
}

// findSampleReleaseDate locates the catalog patch matching the host build and
// returns its release date; zero when the catalog has no such entry.
func findSampleReleaseDate(details []vsphere.ComplianceDetail, build string) time.Time {
	if build == "" {
		return time.Time{}
	}
	for _, d := range details {
		for _, p := range d.CompliantPatches {
			if strings.Contains(p.Name, build) || strings.Contains(p.VendorID, build) {
				return p.ReleaseDate
			}
		}
	}
	return time.Time{}
}

// installDateStrategy normalizes package install dates. Which strategy
// applies is a platform capability, not a version string comparison at the
// call site.
type installDateStrategy interface {
	apply(ctx context.Context, host string, pkgs []vsphere.Package) []vsphere.Package
}

func (f *Fetcher) strategyFor(caps vsphere.Capabilities) installDateStrategy {
	if caps.UnreliableInstallDates {
		return &configEndpointInstallDates{api: f.api, logger: f.logger}
	}
	return primaryInstallDates{}
}

// primaryInstallDates trusts the install date the package API reports.
type primaryInstallDates struct{}

func (primaryInstallDates) apply(_ context.Context, _ string, pkgs []vsphere.Package) []vsphere.Package {
	return pkgs
}

// configEndpointInstallDates recomputes every install date from the low-level
// configuration endpoint, one round trip per package. The endpoint reports
// UTC; dates are converted to local wall-clock time to stay comparable with
// the rest of the run.
type configEndpointInstallDates struct {
	api    vsphere.API
	logger *logrus.Logger
}

func (s *configEndpointInstallDates) apply(ctx context.Context, host string, pkgs []vsphere.Package) []vsphere.Package {
	for i := range pkgs {
		ts, err := s.api.PackageInstallTime(ctx, host, pkgs[i].Name)
		if err != nil {
			s.logger.Warnf("Could not recompute install date for %s on %s: %v", pkgs[i].Name, host, err)
			continue
		}
		pkgs[i].InstallDate = utils.UTCToLocal(ts)
	}
	return pkgs
}
