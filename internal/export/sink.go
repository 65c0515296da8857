package export

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opslynx/patchlynx/pkg/models"
)

// Sink renders a finished run. File-backed sinks return the paths they wrote;
// console and memory sinks return nil.
type Sink interface {
	Name() string
	Export(ctx context.Context, run *models.RunResult) ([]string, error)
}

// Config tunes the file-backed sinks.
type Config struct {
	OutputDir string
	Prefix    string
}

// New resolves a sink by mode name. Supported modes are csv, xlsx, console
// and memory.
func New(mode string, cfg Config, logger *logrus.Logger) (Sink, error) {
	if logger == nil {
		logger = logrus.New()
	}
	switch strings.ToLower(mode) {
	case "", "csv":
		return &CSVSink{cfg: cfg, logger: logger}, nil
	case "xlsx", "excel":
		return &XLSXSink{cfg: cfg, logger: logger}, nil
	case "console", "table":
		return &ConsoleSink{Out: os.Stdout}, nil
	case "memory":
		return &MemorySink{}, nil
	default:
		return nil, fmt.Errorf("unsupported export mode: %s (supported: %s)", mode, strings.Join(Modes(), ", "))
	}
}

// Modes lists the supported export modes.
func Modes() []string {
	modes := []string{"csv", "xlsx", "console", "memory"}
	sort.Strings(modes)
	return modes
}

// filename builds <prefix><timestamp><set>.<ext>. RFC 3339 colons are not
// portable across filesystems, so they become dashes.
func filename(cfg Config, ts time.Time, set, ext string) string {
	stamp := strings.ReplaceAll(ts.Format(time.RFC3339), ":", "-")
	return fmt.Sprintf("%s%s%s.%s", cfg.Prefix, stamp, set, ext)
}
