package compliance

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opslynx/patchlynx/internal/vsphere"
	"github.com/opslynx/patchlynx/pkg/models"
	"github.com/opslynx/patchlynx/pkg/utils"
)

// ReshapeOutput is the three flat record sets one target contributes.
type ReshapeOutput struct {
	Compliance []models.ComplianceRecord
	Installed  []models.InstalledPatchRecord
	Missing    []models.MissingPatchRecord
}

// Reshaper normalizes the fetcher's heterogeneous payloads into flat records
// and collapses packages that belong to the same logical patch.
type Reshaper struct {
	logger *logrus.Logger
}

func NewReshaper(logger *logrus.Logger) *Reshaper {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reshaper{logger: logger}
}

func (r *Reshaper) Reshape(res *FetchResult) ReshapeOutput {
	var out ReshapeOutput

	// One patch bundling several packages must yield one row; index tracks
	// the emitted record per (target, vendor id) so later packages append.
	index := make(map[string]int)

	for _, detail := range res.Details {
		out.Compliance = append(out.Compliance, models.ComplianceRecord{
			Target:         res.Target.Name,
			ProductName:    res.Host.Product,
			ProductVersion: res.Host.Version,
			ProductBuild:   res.Host.Build,
			Baseline:       detail.Baseline.Name,
			Status:         parseStatus(detail.Status),
			LastPatched:    detail.LastScan,
		})

		r.matchInstalled(res, detail, index, &out)

		for _, patch := range detail.NonCompliantPatches {
			out.Missing = append(out.Missing, models.MissingPatchRecord{
				Target:       res.Target.Name,
				Baseline:     detail.Baseline.Name,
				PatchName:    patch.Name,
				ReleaseDate:  patch.ReleaseDate,
				VendorID:     patch.VendorID,
				ReferenceURL: r.referenceURL(patch),
			})
		}
	}

	return out
}

// matchInstalled cross-references the host's recently installed packages
// against the baseline's catalog, restricted to patches released on or after
// the sample patch.
func (r *Reshaper) matchInstalled(res *FetchResult, detail vsphere.ComplianceDetail, index map[string]int, out *ReshapeOutput) {
	for _, pkg := range res.Packages {
		patch := matchPatch(detail.CompliantPatches, pkg, res)
		if patch == nil {
			continue
		}

		key := res.Target.Name + "\x00" + patch.VendorID
		if i, ok := index[key]; ok {
			out.Installed[i].Packages = append(out.Installed[i].Packages, pkg.Name)
			continue
		}

		index[key] = len(out.Installed)
		out.Installed = append(out.Installed, models.InstalledPatchRecord{
			Target:       res.Target.Name,
			Baseline:     detail.Baseline.Name,
			Packages:     []string{pkg.Name},
			PatchName:    patch.Name,
			ReleaseDate:  patch.ReleaseDate,
			InstallDate:  pkg.InstallDate,
			DaysBetween:  utils.DaysBetween(patch.ReleaseDate, pkg.InstallDate),
			VendorID:     patch.VendorID,
			ReferenceURL: r.referenceURL(*patch),
		})
	}
}

func matchPatch(catalog []vsphere.PatchInfo, pkg vsphere.Package, res *FetchResult) *vsphere.PatchInfo {
	for i := range catalog {
		if !res.SampleReleaseDate.IsZero() && catalog[i].ReleaseDate.Before(res.SampleReleaseDate) {
			continue
		}
		if patchNameMatches(catalog[i].Name, pkg.Name) {
			return &catalog[i]
		}
	}
	return nil
}

// patchNameMatches maps a package name to a patch name: the patch name is
// stripped of commas, split on whitespace, and each token compared by
// substring in either direction. Exact equality is too strict because patch
// names list their bundled packages with qualifiers.
func patchNameMatches(patchName, pkgName string) bool {
	pkgLower := strings.ToLower(pkgName)
	tokens := strings.Fields(strings.ReplaceAll(strings.ToLower(patchName), ",", " "))
	for _, token := range tokens {
		if strings.Contains(token, pkgLower) || strings.Contains(pkgLower, token) {
			return true
		}
	}
	return false
}

func (r *Reshaper) referenceURL(patch vsphere.PatchInfo) string {
	url, ok := utils.ExtractURL(patch.Description)
	if !ok {
		r.logger.Debugf("No reference URL in description of patch %s", patch.Name)
		return ""
	}
	return url
}

func parseStatus(s string) models.ComplianceStatus {
	switch strings.ToLower(s) {
	case "compliant":
		return models.StatusCompliant
	case "noncompliant", "non-compliant", "notcompliant":
		return models.StatusNonCompliant
	default:
		return models.StatusUnknown
	}
}
