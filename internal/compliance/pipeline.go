package compliance

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opslynx/patchlynx/internal/vsphere"
	"github.com/opslynx/patchlynx/pkg/models"
	"github.com/opslynx/patchlynx/pkg/utils"
)

// Config tunes one pipeline run.
type Config struct {
	Server           string
	BaselinePatterns []string
	Poll             PollConfig
}

// Pipeline wires Resolver → Trigger → Poll → Fetcher → Reshaper into one
// sequential pass. A failure on one target lands in the skip report and never
// aborts the remaining targets; only a dead session or an unmatched baseline
// pattern is fatal.
type Pipeline struct {
	api      vsphere.API
	cfg      Config
	logger   *logrus.Logger
	metrics  *utils.Metrics
	resolver *Resolver
	trigger  *Trigger
	fetcher  *Fetcher
	reshaper *Reshaper
}

func NewPipeline(api vsphere.API, cfg Config, logger *logrus.Logger, metrics *utils.Metrics) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		api:      api,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		resolver: NewResolver(api, logger, metrics),
		trigger:  NewTrigger(api, logger),
		fetcher:  NewFetcher(api, logger),
		reshaper: NewReshaper(logger),
	}
}

// Resolver exposes target resolution for read-only commands.
func (p *Pipeline) Resolver() *Resolver { return p.resolver }

func (p *Pipeline) Run(ctx context.Context, filter Filter) (*models.RunResult, error) {
	run := &models.RunResult{
		RunID:     utils.GenerateShortID(),
		Server:    p.cfg.Server,
		StartTime: time.Now(),
	}

	targets, err := p.resolver.Resolve(ctx, filter)
	if err != nil {
		return nil, err
	}
	run.Targets = targets
	if len(targets) == 0 {
		p.logger.Warn("Filter resolved no targets; nothing to scan")
		run.EndTime = time.Now()
		return run, nil
	}

	var eligible []models.Target
	for _, target := range targets {
		if !target.State.Eligible() {
			p.skip(run, target.Name, target.State, "not connected at resolution time")
			continue
		}
		eligible = append(eligible, target)
	}
	if len(eligible) == 0 {
		p.logger.Warn("No resolved target is in a scannable state")
		run.EndTime = time.Now()
		return run, nil
	}

	baselines, err := p.trigger.MatchBaselines(ctx, p.cfg.BaselinePatterns)
	if err != nil {
		return nil, err
	}

	handles, err := p.trigger.Run(ctx, eligible, baselines)
	if err != nil {
		return nil, err
	}
	for _, handle := range handles {
		if err := Poll(ctx, p.api, handle, p.cfg.Poll, p.logger, p.metrics); err != nil {
			return nil, err
		}
	}

	for _, target := range eligible {
		fetched, err := p.fetcher.Fetch(ctx, target)
		if err != nil {
			var unavailable *HostUnavailableError
			if errors.As(err, &unavailable) {
				p.skip(run, unavailable.Name, unavailable.State, "unreachable at fetch time")
			} else {
				p.skip(run, target.Name, models.StateUnknown, err.Error())
			}
			continue
		}

		out := p.reshaper.Reshape(fetched)
		run.Compliance = append(run.Compliance, out.Compliance...)
		run.Installed = append(run.Installed, out.Installed...)
		run.Missing = append(run.Missing, out.Missing...)
	}

	p.metrics.RecordsEmitted(models.SetCompliance, len(run.Compliance))
	p.metrics.RecordsEmitted(models.SetLastInstalled, len(run.Installed))
	p.metrics.RecordsEmitted(models.SetMissing, len(run.Missing))

	run.EndTime = time.Now()
	p.logger.Infof("Run %s: %d compliance, %d installed, %d missing, %d skipped",
		run.RunID, len(run.Compliance), len(run.Installed), len(run.Missing), len(run.Skipped))
	return run, nil
}

func (p *Pipeline) skip(run *models.RunResult, name string, state models.ConnectionState, reason string) {
	p.logger.Warnf("Skipping %s (%s): %s", name, state, reason)
	p.metrics.HostSkipped()
	run.Skipped = append(run.Skipped, models.SkipEntry{Target: name, State: state, Reason: reason})
}
