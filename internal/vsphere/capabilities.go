package vsphere

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Capabilities describes platform-version-specific behavior quirks. New
// version exceptions extend this struct rather than leaking version string
// comparisons into the pipeline.
type Capabilities struct {
	// UnreliableInstallDates: the primary package install-date field cannot
	// be trusted and must be recomputed from the low-level configuration
	// endpoint (affects the 6.5 platform line).
	UnreliableInstallDates bool
}

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

var unreliableInstallDateRange = mustConstraint(">= 6.5.0, < 6.6.0")

// DetectCapabilities derives quirk flags from a host's reported API version.
// Unparseable versions yield the zero value: no quirks assumed.
func DetectCapabilities(apiVersion string) Capabilities {
	v, err := semver.NewVersion(strings.TrimSpace(apiVersion))
	if err != nil {
		return Capabilities{}
	}
	return Capabilities{
		UnreliableInstallDates: unreliableInstallDateRange.Check(v),
	}
}
