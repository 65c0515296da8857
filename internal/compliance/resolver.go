package compliance

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/opslynx/patchlynx/internal/vsphere"
	"github.com/opslynx/patchlynx/pkg/models"
	"github.com/opslynx/patchlynx/pkg/utils"
)

// Filter selects the hosts a run targets: explicit host names, group names,
// or every host the server manages.
type Filter struct {
	Hosts  []string
	Groups []string
	All    bool
}

func (f Filter) IsZero() bool {
	return !f.All && len(f.Hosts) == 0 && len(f.Groups) == 0
}

// Resolver turns a Filter into an ordered, deduplicated target list. Unknown
// names are warned about and skipped; only a missing session is fatal.
type Resolver struct {
	api     vsphere.API
	logger  *logrus.Logger
	metrics *utils.Metrics
}

func NewResolver(api vsphere.API, logger *logrus.Logger, metrics *utils.Metrics) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{api: api, logger: logger, metrics: metrics}
}

func (r *Resolver) Resolve(ctx context.Context, filter Filter) ([]models.Target, error) {
	var targets []models.Target

	switch {
	case filter.All:
		hosts, err := r.api.ListHosts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list hosts: %w", err)
		}
		for _, h := range hosts {
			targets = append(targets, toTarget(h, "all"))
		}

	default:
		for _, group := range filter.Groups {
			hosts, err := r.api.GroupHosts(ctx, group)
			if err != nil {
				if errors.Is(err, vsphere.ErrNotConnected) {
					return nil, err
				}
				if errors.Is(err, vsphere.ErrNotFound) {
					r.logger.Warnf("Host group %q not found, skipping", group)
					continue
				}
				r.logger.Warnf("Could not enumerate group %q: %v", group, err)
				continue
			}
			for _, h := range hosts {
				targets = append(targets, toTarget(h, "group:"+group))
			}
		}

		for _, name := range filter.Hosts {
			h, err := r.api.FindHost(ctx, name)
			if err != nil {
				if errors.Is(err, vsphere.ErrNotConnected) {
					return nil, err
				}
				if errors.Is(err, vsphere.ErrNotFound) {
					r.logger.Warnf("Host %q not found, skipping", name)
					continue
				}
				r.logger.Warnf("Could not look up host %q: %v", name, err)
				continue
			}
			targets = append(targets, toTarget(*h, "host"))
		}
	}

	targets = dedupeTargets(targets)
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })

	r.metrics.HostsResolved(len(targets))
	r.logger.Infof("Resolved %d target(s)", len(targets))
	return targets, nil
}

func toTarget(h vsphere.HostSummary, source string) models.Target {
	return models.Target{
		Name:   h.Name,
		Ref:    h.Ref,
		State:  models.ParseConnectionState(h.State),
		Source: source,
	}
}

// dedupeTargets keeps the first occurrence of each host name; overlapping
// groups routinely contribute the same host twice.
func dedupeTargets(targets []models.Target) []models.Target {
	seen := make(map[string]struct{}, len(targets))
	out := targets[:0]
	for _, t := range targets {
		if _, ok := seen[t.Name]; ok {
			continue
		}
		seen[t.Name] = struct{}{}
		out = append(out, t)
	}
	return out
}
