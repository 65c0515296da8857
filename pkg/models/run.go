package models

import "time"

// Set names used for export destinations and workbook sheets.
const (
	SetCompliance    = "Compliance"
	SetLastInstalled = "LastInstalled"
	SetMissing       = "Missing"
)

// RunResult aggregates everything one pipeline invocation produced. It is the
// in-memory return mode of the sink and the unit persisted by the run
// repository; none of it outlives the invocation unless explicitly stored.
type RunResult struct {
	RunID      string                 `json:"run_id"`
	Server     string                 `json:"server"`
	StartTime  time.Time              `json:"start_time"`
	EndTime    time.Time              `json:"end_time"`
	Targets    []Target               `json:"targets"`
	Compliance []ComplianceRecord     `json:"compliance"`
	Installed  []InstalledPatchRecord `json:"installed"`
	Missing    []MissingPatchRecord   `json:"missing"`
	Skipped    []SkipEntry            `json:"skipped"`
}

// Empty reports whether the run produced no records at all.
func (r *RunResult) Empty() bool {
	return len(r.Compliance) == 0 && len(r.Installed) == 0 && len(r.Missing) == 0
}
