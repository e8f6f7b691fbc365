// Package pipeline runs the highlight production pipeline for a project:
// transcription, scene segmentation with captions, chapter grouping,
// optional narration and final assembly. Stage summaries are checkpointed to
// the run's step details after every stage; an interrupted run can be
// re-entered safely because each stage is idempotent.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/genesis-media/genesis/internal/engines"
	"github.com/genesis-media/genesis/internal/media"
	"github.com/genesis-media/genesis/internal/store"
)

const (
	defaultVoiceoverGain = 1.0
	defaultBedGain       = 0.3
	defaultConcurrency   = 2
)

// Options configures a single pipeline execution.
type Options struct {
	// RunID resumes an existing run instead of creating a new one.
	RunID string

	// VoiceoverPath, when set, mixes the given audio file over the final cut.
	VoiceoverPath string
	OffsetSeconds float64
	VoiceoverGain float64 // 0 means the default of 1.0
	BedGain       float64 // 0 means the default of 0.3

	// Unspecified policies default to skip-if-present for transcription and
	// recompute for segmentation.
	TranscriptionPolicy IdempotencyPolicy
	SegmentationPolicy  IdempotencyPolicy
}

func (o Options) withDefaults() Options {
	if o.VoiceoverGain == 0 {
		o.VoiceoverGain = defaultVoiceoverGain
	}
	if o.BedGain == 0 {
		o.BedGain = defaultBedGain
	}
	if o.TranscriptionPolicy == PolicyUnspecified {
		o.TranscriptionPolicy = PolicySkipIfPresent
	}
	if o.SegmentationPolicy == PolicyUnspecified {
		o.SegmentationPolicy = PolicyRecompute
	}
	return o
}

// Orchestrator drives the pipeline stages and owns the run state machine.
type Orchestrator struct {
	repo         store.Repository
	transcriber  engines.Transcriber
	detector     engines.BoundaryDetector
	captioner    engines.Captioner
	ffmpeg       media.FFmpeg
	artifactRoot string
	concurrency  int
	logger       *slog.Logger
}

func NewOrchestrator(
	repo store.Repository,
	transcriber engines.Transcriber,
	detector engines.BoundaryDetector,
	captioner engines.Captioner,
	ffmpeg media.FFmpeg,
	artifactRoot string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		repo:         repo,
		transcriber:  transcriber,
		detector:     detector,
		captioner:    captioner,
		ffmpeg:       ffmpeg,
		artifactRoot: artifactRoot,
		concurrency:  defaultConcurrency,
		logger:       logger,
	}
}

// SetConcurrency bounds how many engine or render subprocesses a stage may
// have in flight at once.
func (o *Orchestrator) SetConcurrency(n int) {
	if n > 0 {
		o.concurrency = n
	}
}

// CreateRun creates a pending run for a project without starting it. Callers
// that report the run id before processing begins use this, then pass the id
// to Process via Options.RunID.
func (o *Orchestrator) CreateRun(ctx context.Context, projectID string) (*store.Run, error) {
	project, err := o.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	return o.prepareRun(ctx, projectID, "")
}

// LookupRun returns the run when it exists and belongs to the project, and
// ErrRunNotFound otherwise.
func (o *Orchestrator) LookupRun(ctx context.Context, projectID, runID string) (*store.Run, error) {
	run, err := o.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if run == nil || run.ProjectID != projectID {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// Process executes the pipeline for a project. It returns the run, which
// reflects the final state even when processing failed.
func (o *Orchestrator) Process(ctx context.Context, projectID string, opts Options) (*store.Run, error) {
	opts = opts.withDefaults()

	project, err := o.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	run, err := o.prepareRun(ctx, projectID, opts.RunID)
	if err != nil {
		return nil, err
	}

	logger := o.logger.With("project_id", projectID, "run_id", run.ID)
	logger.Info("pipeline starting")

	if err := o.repo.MarkRunStarted(ctx, run.ID); err != nil {
		return run, fmt.Errorf("mark run started: %w", err)
	}
	if err := o.repo.UpdateProjectStatus(ctx, projectID, store.ProjectStatusProcessing); err != nil {
		return run, fmt.Errorf("update project status: %w", err)
	}

	details := &store.StepDetails{}
	if run.StepDetails != nil {
		details = run.StepDetails
	}

	err = o.execute(ctx, project, run, details, opts, logger)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation is not a failure. The project stays usable and the
			// run records where it stopped.
			_ = o.repo.UpdateRunState(context.Background(), run.ID, store.RunStateCancelled, true)
			_ = o.repo.UpdateProjectStatus(context.Background(), projectID, store.ProjectStatusReady)
			logger.Info("pipeline cancelled")
			run.State = store.RunStateCancelled
			return run, ctx.Err()
		}

		_ = o.repo.SetRunError(ctx, run.ID, err.Error())
		_ = o.repo.UpdateRunState(ctx, run.ID, store.RunStateFailed, true)
		_ = o.repo.UpdateProjectStatus(ctx, projectID, store.ProjectStatusFailed)
		logger.Error("pipeline failed", "error", err)
		run.State = store.RunStateFailed
		run.ErrorMessage = err.Error()
		return run, err
	}

	if err := o.repo.UpdateRunState(ctx, run.ID, store.RunStateCompleted, true); err != nil {
		return run, fmt.Errorf("complete run: %w", err)
	}
	if err := o.repo.UpdateProjectStatus(ctx, projectID, store.ProjectStatusCompleted); err != nil {
		return run, fmt.Errorf("complete project: %w", err)
	}
	logger.Info("pipeline completed")
	run.State = store.RunStateCompleted
	return run, nil
}

// execute walks the stage sequence. Re-entry with the same run always starts
// from validating; the stage summaries in details are diagnostic checkpoints,
// and re-entry is safe because transcription fills gaps while the later
// stages fully recompute their outputs.
func (o *Orchestrator) execute(ctx context.Context, project *store.Project, run *store.Run, details *store.StepDetails, opts Options, logger *slog.Logger) error {
	if err := o.transition(ctx, run, store.RunStateValidating); err != nil {
		return err
	}
	assets, err := o.repo.ListMediaAssets(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("list media assets: %w", err)
	}
	if len(assets) == 0 {
		return ErrNoMediaAssets
	}

	if err := o.transition(ctx, run, store.RunStateTranscribing); err != nil {
		return err
	}
	transcription, err := o.runTranscription(ctx, project, assets, opts.TranscriptionPolicy, logger)
	if err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	details.Transcription = transcription
	if err := o.checkpoint(ctx, run.ID, details); err != nil {
		return err
	}
	if err := o.exportTranscripts(ctx, project.ID, run.ID); err != nil {
		logger.Warn("transcript export failed", "error", err)
	}

	if err := o.transition(ctx, run, store.RunStateSceneDetecting); err != nil {
		return err
	}
	segmentation, err := o.runSegmentation(ctx, project, assets, opts.SegmentationPolicy, logger)
	if err != nil {
		return fmt.Errorf("scene detection: %w", err)
	}
	details.SceneDetection = segmentation
	if err := o.checkpoint(ctx, run.ID, details); err != nil {
		return err
	}
	if err := o.exportScenes(ctx, project.ID, run.ID); err != nil {
		logger.Warn("scene export failed", "error", err)
	}

	if err := o.transition(ctx, run, store.RunStateChapterizing); err != nil {
		return err
	}
	chapters, err := o.runChapterization(ctx, project, logger)
	if err != nil {
		return fmt.Errorf("chapterization: %w", err)
	}
	details.Chapters = chapters
	if err := o.checkpoint(ctx, run.ID, details); err != nil {
		return err
	}
	if err := o.exportChapters(ctx, project.ID, run.ID); err != nil {
		logger.Warn("chapter export failed", "error", err)
	}

	if err := o.transition(ctx, run, store.RunStateAssembling); err != nil {
		return err
	}

	// Narration applies only when this invocation supplies a voiceover. A
	// checkpointed summary from an earlier attempt is diagnostic history, not
	// an instruction to re-mix.
	var voiceover *store.VoiceoverSummary
	if opts.VoiceoverPath != "" {
		voiceover, err = o.runNarration(ctx, project, run, opts, logger)
		if err != nil {
			return fmt.Errorf("narration: %w", err)
		}
		details.Voiceover = voiceover
		if err := o.checkpoint(ctx, run.ID, details); err != nil {
			return err
		}
	}

	assembly, err := o.runAssembly(ctx, project, run, voiceover, opts, logger)
	if err != nil {
		return fmt.Errorf("assembly: %w", err)
	}
	details.Assembly = assembly
	if err := o.checkpoint(ctx, run.ID, details); err != nil {
		return err
	}

	return nil
}

// transition moves the run to the next state after checking for cooperative
// cancellation at the stage boundary.
func (o *Orchestrator) transition(ctx context.Context, run *store.Run, state string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.repo.UpdateRunState(ctx, run.ID, state, false); err != nil {
		return fmt.Errorf("transition to %s: %w", state, err)
	}
	run.State = state
	return nil
}

func (o *Orchestrator) checkpoint(ctx context.Context, runID string, details *store.StepDetails) error {
	if err := o.repo.SaveRunStepDetails(ctx, runID, details); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (o *Orchestrator) prepareRun(ctx context.Context, projectID, runID string) (*store.Run, error) {
	if runID != "" {
		run, err := o.repo.GetRun(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load run: %w", err)
		}
		if run == nil || run.ProjectID != projectID {
			return nil, ErrRunNotFound
		}
		// A resumed run re-executes from the start, so terminal state and
		// error from the previous attempt are cleared.
		if err := o.repo.UpdateRunState(ctx, run.ID, store.RunStatePending, false); err != nil {
			return nil, fmt.Errorf("reset run state: %w", err)
		}
		if err := o.repo.SetRunError(ctx, run.ID, ""); err != nil {
			return nil, fmt.Errorf("clear run error: %w", err)
		}
		return run, nil
	}

	run := &store.Run{
		ID:        store.NewID(),
		ProjectID: projectID,
		State:     store.RunStatePending,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// fileReadable reports whether the file exists and can be opened.
func fileReadable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
