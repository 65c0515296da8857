package export

import (
	"context"
	"sync"

	"github.com/opslynx/patchlynx/pkg/models"
)

// MemorySink retains the run for callers embedding the pipeline as a
// library. Nothing touches disk.
type MemorySink struct {
	mu  sync.Mutex
	run *models.RunResult
}

func (s *MemorySink) Name() string { return "memory" }

func (s *MemorySink) Export(_ context.Context, run *models.RunResult) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = run
	return nil, nil
}

// Run returns the most recently exported run, nil before the first export.
func (s *MemorySink) Run() *models.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}
