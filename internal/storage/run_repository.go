package storage

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"github.com/opslynx/patchlynx/pkg/models"
)

// ErrRunNotFound marks a run id absent from the repository.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is the index entry kept per stored run.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Server      string    `json:"server"`
	StartTime   time.Time `json:"start_time"`
	Targets     int       `json:"targets"`
	Records     int       `json:"records"`
	Skipped     int       `json:"skipped"`
	Fingerprint string    `json:"fingerprint"`
	Compressed  bool      `json:"compressed"`
}

// RunRepository persists finished runs as JSON documents under a base
// directory, with an index file carrying per-run fingerprints so corrupted
// documents are detected on load rather than propagated into reports.
type RunRepository struct {
	baseDir     string
	logger      *logrus.Logger
	mu          sync.RWMutex
	compression bool
	retention   time.Duration
}

func NewRunRepository(baseDir string, compression bool, retention time.Duration, logger *logrus.Logger) (*RunRepository, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "runs"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}
	return &RunRepository{
		baseDir:     baseDir,
		logger:      logger,
		compression: compression,
		retention:   retention,
	}, nil
}

func (r *RunRepository) Store(run *models.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.RunID == "" {
		return errors.New("run has no id")
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	fingerprint := fmt.Sprintf("%016x", xxh3.Hash(data))

	path := r.runPath(run.RunID, r.compression)
	if r.compression {
		if err := writeGzipAtomic(path, data); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
	} else {
		if err := writeAtomic(path, data); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
	}

	index, err := r.loadIndex()
	if err != nil {
		return err
	}
	index[run.RunID] = RunSummary{
		RunID:       run.RunID,
		Server:      run.Server,
		StartTime:   run.StartTime,
		Targets:     len(run.Targets),
		Records:     len(run.Compliance) + len(run.Installed) + len(run.Missing),
		Skipped:     len(run.Skipped),
		Fingerprint: fingerprint,
		Compressed:  r.compression,
	}
	if err := r.saveIndex(index); err != nil {
		return err
	}

	r.logger.Infof("Run %s stored at %s", run.RunID, path)
	return nil
}

func (r *RunRepository) Load(runID string) (*models.RunResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	summary, ok := index[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	data, err := r.readRun(runID, summary.Compressed)
	if err != nil {
		return nil, err
	}

	if got := fmt.Sprintf("%016x", xxh3.Hash(data)); got != summary.Fingerprint {
		r.logger.Warnf("Run %s fingerprint mismatch (stored %s, computed %s)", runID, summary.Fingerprint, got)
	}

	var run models.RunResult
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &run, nil
}

// List returns the index entries, newest first.
func (r *RunRepository) List() ([]RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(index))
	for _, s := range index {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (r *RunRepository) Delete(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.loadIndex()
	if err != nil {
		return err
	}
	summary, ok := index[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	if err := os.Remove(r.runPath(runID, summary.Compressed)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove run %s: %w", runID, err)
	}
	delete(index, runID)
	return r.saveIndex(index)
}

// Cleanup removes runs older than the retention period and returns how many
// were deleted. A zero retention disables the sweep.
func (r *RunRepository) Cleanup() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.retention <= 0 {
		return 0, nil
	}

	index, err := r.loadIndex()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-r.retention)
	removed := 0
	for id, summary := range index {
		if summary.StartTime.After(cutoff) {
			continue
		}
		if err := os.Remove(r.runPath(id, summary.Compressed)); err != nil && !os.IsNotExist(err) {
			r.logger.Warnf("Failed to remove expired run %s: %v", id, err)
			continue
		}
		delete(index, id)
		removed++
	}
	if removed > 0 {
		if err := r.saveIndex(index); err != nil {
			return removed, err
		}
		r.logger.Infof("Removed %d expired run(s)", removed)
	}
	return removed, nil
}

func (r *RunRepository) Stats() (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, err := r.loadIndex()
	if err != nil {
		return nil, err
	}

	var totalSize int64
	entries, err := os.ReadDir(filepath.Join(r.baseDir, "runs"))
	if err != nil {
		return nil, fmt.Errorf("read runs directory: %w", err)
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		totalSize += info.Size()
	}

	return map[string]interface{}{
		"base_dir":         r.baseDir,
		"total_runs":       len(index),
		"total_size_bytes": totalSize,
		"compression":      r.compression,
		"retention":        r.retention.String(),
	}, nil
}

func (r *RunRepository) runPath(runID string, compressed bool) string {
	name := runID + ".json"
	if compressed {
		name += ".gz"
	}
	return filepath.Join(r.baseDir, "runs", name)
}

func (r *RunRepository) readRun(runID string, compressed bool) ([]byte, error) {
	path := r.runPath(runID, compressed)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run %s: %w", runID, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if compressed || strings.HasSuffix(path, ".gz") {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr
	}
	return io.ReadAll(reader)
}

func (r *RunRepository) indexPath() string {
	return filepath.Join(r.baseDir, "index.json")
}

func (r *RunRepository) loadIndex() (map[string]RunSummary, error) {
	data, err := os.ReadFile(r.indexPath())
	if os.IsNotExist(err) {
		return map[string]RunSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	index := map[string]RunSummary{}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	return index, nil
}

func (r *RunRepository) saveIndex(index map[string]RunSummary) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := writeAtomic(r.indexPath(), data); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeGzipAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	gzw := gzip.NewWriter(f)
	_, copyErr := gzw.Write(data)
	closeErr1 := gzw.Close()
	closeErr2 := f.Close()
	if copyErr != nil {
		_ = os.Remove(tmp)
		return copyErr
	}
	if closeErr1 != nil || closeErr2 != nil {
		_ = os.Remove(tmp)
		if closeErr1 != nil {
			return closeErr1
		}
		return closeErr2
	}
	return os.Rename(tmp, path)
}
