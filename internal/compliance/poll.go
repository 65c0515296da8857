package compliance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opslynx/patchlynx/internal/vsphere"
	"github.com/opslynx/patchlynx/pkg/utils"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 30 * time.Minute
)

// PollConfig bounds the scan-status polling loop. The remote engine offers no
// completion callback, so the loop re-fetches status on a fixed interval and
// gives up after Timeout rather than stalling forever.
type PollConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = defaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultPollTimeout
	}
	return c
}

// Poll blocks until the scan behind handle first reports 100% completion.
// It terminates early only on context cancellation, the configured timeout,
// or an explicit error state from the task, never on partial progress.
func Poll(ctx context.Context, api vsphere.API, handle *vsphere.ScanHandle, cfg PollConfig, logger *logrus.Logger, metrics *utils.Metrics) error {
	if logger == nil {
		logger = logrus.New()
	}
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.ObservePoll(time.Since(start)) }()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		status, err := api.ScanStatus(ctx, handle)
		if err != nil {
			return fmt.Errorf("scan %s status: %w", handle.TaskID, err)
		}
		if status.Error != "" || status.State == "error" {
			return fmt.Errorf("scan %s failed remotely: %s", handle.TaskID, status.Error)
		}

		logger.Infof("Scan %s: %d%% complete", handle.TaskID, status.Progress)
		if status.Progress >= 100 {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("scan %s did not complete within %s", handle.TaskID, cfg.Timeout)
			}
			return fmt.Errorf("scan %s polling cancelled: %w", handle.TaskID, ctx.Err())
		case <-ticker.C:
		}
	}
}
