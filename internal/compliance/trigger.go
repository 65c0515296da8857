package compliance

import (
	"context"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/opslynx/patchlynx/internal/vsphere"
	"github.com/opslynx/patchlynx/pkg/models"
)

// Trigger resolves baseline name patterns, attaches the matched baselines to
// each target and requests asynchronous compliance scans, one per resolution
// granularity.
//
// Known gap: the server offers no idempotency key, so re-triggering for an
// overlapping target set may queue duplicate remote scans. Callers trigger
// once per run.
type Trigger struct {
	api    vsphere.API
	logger *logrus.Logger
}

func NewTrigger(api vsphere.API, logger *logrus.Logger) *Trigger {
	if logger == nil {
		logger = logrus.New()
	}
	return &Trigger{api: api, logger: logger}
}

// MatchBaselines resolves glob patterns against the server's baseline list.
// Matching is case-insensitive. No match across all patterns is fatal.
func (t *Trigger) MatchBaselines(ctx context.Context, patterns []string) ([]vsphere.Baseline, error) {
	if len(patterns) == 0 {
		patterns = models.DefaultBaselinePatterns
	}

	baselines, err := t.api.ListBaselines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}

	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid baseline pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	var matched []vsphere.Baseline
	for _, b := range baselines {
		name := strings.ToLower(b.Name)
		for _, g := range globs {
			if g.Match(name) {
				matched = append(matched, b)
				break
			}
		}
	}

	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: %s", vsphere.ErrBaselineNotFound, strings.Join(patterns, ", "))
	}
	t.logger.Infof("Matched %d baseline(s) for pattern(s) %s", len(matched), strings.Join(patterns, ", "))
	return matched, nil
}

// Run attaches the baselines and starts one scan per target source. The
// returned handles are polled to completion by the caller.
func (t *Trigger) Run(ctx context.Context, targets []models.Target, baselines []vsphere.Baseline) ([]*vsphere.ScanHandle, error) {
	ids := make([]string, 0, len(baselines))
	for _, b := range baselines {
		ids = append(ids, b.ID)
	}

	bySource := make(map[string][]string)
	var sources []string
	for _, target := range targets {
		if err := t.api.AttachBaselines(ctx, target.Name, ids); err != nil {
			t.logger.Warnf("Could not attach baselines to %s: %v", target.Name, err)
		}
		if _, ok := bySource[target.Source]; !ok {
			sources = append(sources, target.Source)
		}
		bySource[target.Source] = append(bySource[target.Source], target.Name)
	}

	handles := make([]*vsphere.ScanHandle, 0, len(sources))
	for _, source := range sources {
		handle, err := t.api.StartScan(ctx, bySource[source])
		if err != nil {
			return nil, fmt.Errorf("start scan for %s: %w", source, err)
		}
		handle.Source = source
		t.logger.Infof("Compliance scan %s queued for %d host(s) (%s)", handle.TaskID, len(handle.Hosts), source)
		handles = append(handles, handle)
	}
	return handles, nil
}
