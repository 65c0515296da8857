package vsphere

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConnected is fatal: no active session with the management server.
	ErrNotConnected = errors.New("no active management server session")
	// ErrBaselineNotFound is fatal: no baseline matched the requested patterns.
	ErrBaselineNotFound = errors.New("no baseline matches the requested patterns")
	// ErrNotFound marks a host or group name the server does not know. Callers
	// treat it as a warning, not a failure.
	ErrNotFound = errors.New("object not found")
)

// API is the management-server surface the compliance pipeline consumes.
// Every call takes a context and may fail independently; the pipeline never
// retries.
type API interface {
	ListHosts(ctx context.Context) ([]HostSummary, error)
	GroupHosts(ctx context.Context, group string) ([]HostSummary, error)
	FindHost(ctx context.Context, name string) (*HostSummary, error)

	ListBaselines(ctx context.Context) ([]Baseline, error)
	AttachBaselines(ctx context.Context, host string, baselineIDs []string) error

	StartScan(ctx context.Context, hosts []string) (*ScanHandle, error)
	ScanStatus(ctx context.Context, handle *ScanHandle) (*ScanStatus, error)

	HostCompliance(ctx context.Context, host string) ([]ComplianceDetail, error)
	HostPackages(ctx context.Context, host string) ([]Package, error)
	// PackageInstallTime queries the low-level configuration endpoint for a
	// package's install timestamp. The endpoint reports UTC.
	PackageInstallTime(ctx context.Context, host, pkg string) (time.Time, error)
}

// HostSummary is the server's view of one managed host.
type HostSummary struct {
	Name       string `json:"name"`
	Ref        string `json:"ref"`
	State      string `json:"connection_state"`
	Vendor     string `json:"vendor"`
	Product    string `json:"product"`
	Version    string `json:"version"`
	Build      string `json:"build"`
	APIVersion string `json:"api_version"`
}

// Baseline is a named, versioned patch set the compliance engine checks
// hosts against.
type Baseline struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ScanHandle references an in-progress asynchronous compliance scan. It is
// created by StartScan, refreshed only through ScanStatus, and discarded at
// 100% or on error.
type ScanHandle struct {
	TaskID string   `json:"task_id"`
	Source string   `json:"source"`
	Hosts  []string `json:"hosts"`
}

// ScanStatus is one observation of a scan task's progress.
type ScanStatus struct {
	Progress int    `json:"progress"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
}

// PatchInfo is one catalog entry of a baseline.
type PatchInfo struct {
	Name        string    `json:"name"`
	VendorID    string    `json:"vendor_id"`
	ReleaseDate time.Time `json:"release_date"`
	Severity    string    `json:"severity,omitempty"`
	Description string    `json:"description,omitempty"`
}

// ComplianceDetail is the per-baseline breakdown for one host after a scan.
type ComplianceDetail struct {
	Baseline            Baseline    `json:"baseline"`
	Status              string      `json:"status"`
	LastScan            time.Time   `json:"last_scan"`
	CompliantPatches    []PatchInfo `json:"compliant_patches"`
	NonCompliantPatches []PatchInfo `json:"non_compliant_patches"`
}

// Package is one installable software unit (VIB) present on a host. A patch
// may bundle several packages.
type Package struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Vendor      string    `json:"vendor"`
	InstallDate time.Time `json:"install_date"`
}
