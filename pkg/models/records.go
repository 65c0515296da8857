package models

import "time"

// ComplianceStatus is the per-(host, baseline) verdict from the scan.
type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "Compliant"
	StatusNonCompliant ComplianceStatus = "NonCompliant"
	StatusUnknown      ComplianceStatus = "Unknown"
)

// ComplianceRecord is one (target, baseline) row of the compliance set.
type ComplianceRecord struct {
	Target         string           `json:"target"`
	ProductName    string           `json:"product_name"`
	ProductVersion string           `json:"product_version"`
	ProductBuild   string           `json:"product_build"`
	Baseline       string           `json:"baseline"`
	Status         ComplianceStatus `json:"status"`
	LastPatched    time.Time        `json:"last_patched"`
}

// InstalledPatchRecord is one applied patch. A single patch may ship several
// packages; Packages collects every matched package name in encounter order,
// keyed for de-duplication by (Target, VendorID).
type InstalledPatchRecord struct {
	Target       string    `json:"target"`
	Baseline     string    `json:"baseline"`
	Packages     []string  `json:"packages"`
	PatchName    string    `json:"patch_name"`
	ReleaseDate  time.Time `json:"release_date"`
	InstallDate  time.Time `json:"install_date"`
	DaysBetween  int       `json:"days_between"`
	VendorID     string    `json:"vendor_id"`
	ReferenceURL string    `json:"reference_url,omitempty"`
}

// MissingPatchRecord is one non-compliant patch from the breakdown.
type MissingPatchRecord struct {
	Target       string    `json:"target"`
	Baseline     string    `json:"baseline"`
	PatchName    string    `json:"patch_name"`
	ReleaseDate  time.Time `json:"release_date"`
	VendorID     string    `json:"vendor_id"`
	ReferenceURL string    `json:"reference_url,omitempty"`
}
