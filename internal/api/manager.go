package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/genesis-media/genesis/internal/pipeline"
)

// RunManager launches pipeline executions in the background and keeps their
// cancel functions so an in-flight run can be stopped over the API.
type RunManager struct {
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc // run id -> cancel
}

func NewRunManager(orchestrator *pipeline.Orchestrator, logger *slog.Logger) *RunManager {
	return &RunManager{
		orchestrator: orchestrator,
		logger:       logger,
		active:       make(map[string]context.CancelFunc),
	}
}

// Start kicks off processing for a project and returns the run id without
// waiting for completion.
func (m *RunManager) Start(projectID string, opts pipeline.Options) (string, error) {
	// The run row must exist before we return its id, so create or look it
	// up synchronously and process it in the background.
	runID := opts.RunID
	if runID == "" {
		run, err := m.orchestrator.CreateRun(context.Background(), projectID)
		if err != nil {
			return "", err
		}
		runID = run.ID
	} else {
		if _, err := m.orchestrator.LookupRun(context.Background(), projectID, runID); err != nil {
			return "", err
		}
	}
	opts.RunID = runID

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.active[runID] = cancel
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.active, runID)
			m.mu.Unlock()
			cancel()
		}()
		if _, err := m.orchestrator.Process(ctx, projectID, opts); err != nil {
			m.logger.Warn("background run finished with error", "run_id", runID, "error", err)
		}
	}()

	return runID, nil
}

// Cancel stops an in-flight run. It returns false when the run is not active
// in this process.
func (m *RunManager) Cancel(runID string) bool {
	m.mu.Lock()
	cancel, ok := m.active[runID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}
