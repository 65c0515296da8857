package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/opslynx/patchlynx/pkg/models"
)

// table is one record set flattened to strings. Every sink renders tables,
// so coercion rules live here and nowhere else.
type table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// tables flattens the run's non-empty record sets. Empty sets produce no
// table and therefore no output file.
func tables(run *models.RunResult) []table {
	var out []table

	if len(run.Compliance) > 0 {
		t := table{
			Name:    models.SetCompliance,
			Headers: []string{"Target", "Product", "Version", "Build", "Baseline", "Status", "LastPatched"},
		}
		for _, r := range run.Compliance {
			t.Rows = append(t.Rows, []string{
				r.Target, r.ProductName, r.ProductVersion, r.ProductBuild,
				r.Baseline, string(r.Status), formatTime(r.LastPatched),
			})
		}
		out = append(out, t)
	}

	if len(run.Installed) > 0 {
		t := table{
			Name: models.SetLastInstalled,
			Headers: []string{
				"Target", "Baseline", "Packages", "PatchName",
				"ReleaseDate", "InstallDate", "DaysBetween", "VendorID", "ReferenceURL",
			},
		}
		for _, r := range run.Installed {
			t.Rows = append(t.Rows, []string{
				r.Target, r.Baseline, strings.Join(r.Packages, ", "), r.PatchName,
				formatTime(r.ReleaseDate), formatTime(r.InstallDate),
				strconv.Itoa(r.DaysBetween), r.VendorID, r.ReferenceURL,
			})
		}
		out = append(out, t)
	}

	if len(run.Missing) > 0 {
		t := table{
			Name:    models.SetMissing,
			Headers: []string{"Target", "Baseline", "PatchName", "ReleaseDate", "VendorID", "ReferenceURL"},
		}
		for _, r := range run.Missing {
			t.Rows = append(t.Rows, []string{
				r.Target, r.Baseline, r.PatchName,
				formatTime(r.ReleaseDate), r.VendorID, r.ReferenceURL,
			})
		}
		out = append(out, t)
	}

	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
