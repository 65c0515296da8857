package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opslynx/patchlynx/pkg/models"
	"github.com/opslynx/patchlynx/pkg/utils"
)

// CSVSink writes one file per non-empty record set. Values are written
// verbatim, no quoting beyond what RFC 4180 requires and no type coercion.
type CSVSink struct {
	cfg    Config
	logger *logrus.Logger
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Export(ctx context.Context, run *models.RunResult) ([]string, error) {
	tbls := tables(run)
	if len(tbls) == 0 {
		s.logger.Warn("Run produced no records, nothing to export")
		return nil, nil
	}
	if err := utils.EnsureDir(s.cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}

	var (
		mu    sync.Mutex
		paths []string
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, tbl := range tbls {
		tbl := tbl
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(s.cfg.OutputDir, filename(s.cfg, run.StartTime, tbl.Name, "csv"))
			if err := writeCSV(path, tbl); err != nil {
				return fmt.Errorf("%s set: %w", tbl.Name, err)
			}
			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(paths)
	s.logger.Infof("Exported %d CSV file(s) to %s", len(paths), s.cfg.OutputDir)
	return paths, nil
}

func writeCSV(path string, tbl table) error {
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.Write(tbl.Headers); err != nil {
		return err
	}
	if err := w.WriteAll(tbl.Rows); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, []byte(buf.String()), 0o644)
}
