// Command process runs the highlight pipeline once for a project and exits.
// It talks to the same database and artifact root as the genesis server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/genesis-media/genesis/internal/config"
	"github.com/genesis-media/genesis/internal/db"
	"github.com/genesis-media/genesis/internal/engines"
	"github.com/genesis-media/genesis/internal/logging"
	"github.com/genesis-media/genesis/internal/media"
	"github.com/genesis-media/genesis/internal/pipeline"
	"github.com/genesis-media/genesis/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	var (
		projectID     = flag.String("project-id", "", "project to process (required)")
		runID         = flag.String("run-id", "", "resume an existing run")
		voiceover     = flag.String("voiceover", "", "path to a narration audio file")
		offsetSeconds = flag.Float64("voiceover-offset", 0, "narration start offset in seconds")
		voiceoverGain = flag.Float64("voiceover-gain", 1.0, "narration volume multiplier")
		bedGain       = flag.Float64("bed-gain", 0.3, "original audio volume multiplier under narration")
		skipExisting  = flag.Bool("skip-existing", false, "keep transcripts and scenes from a previous run")
	)
	flag.Parse()

	if *projectID == "" {
		flag.Usage()
		return fmt.Errorf("-project-id is required")
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	engineCfg := engines.DefaultConfig(cfg.DataDir(), logger)
	engineCfg.PythonPath = cfg.EnginesPython()
	engineCfg.ModuleName = cfg.EnginesModule()
	engineCfg.TranscribeTimeout = cfg.EnginesTimeoutTranscribe()
	engineCfg.DetectTimeout = cfg.EnginesTimeoutDetect()
	engineCfg.CaptionTimeout = cfg.EnginesTimeoutCaption()

	eng, err := engines.New(engineCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engines: %w", err)
	}

	ffmpeg := media.NewCLIFFmpeg(cfg.FFmpegBinary(), cfg.FFprobeBinary(), logger)
	orchestrator := pipeline.NewOrchestrator(repo, eng, eng, eng, ffmpeg, cfg.ArtifactRoot(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupt received, cancelling run")
		cancel()
	}()

	policy := pipeline.PolicyUnspecified
	if *skipExisting {
		policy = pipeline.PolicySkipIfPresent
	}

	run, err := orchestrator.Process(ctx, *projectID, pipeline.Options{
		RunID:               *runID,
		VoiceoverPath:       *voiceover,
		OffsetSeconds:       *offsetSeconds,
		VoiceoverGain:       *voiceoverGain,
		BedGain:             *bedGain,
		TranscriptionPolicy: policy,
		SegmentationPolicy:  policy,
	})
	if err != nil {
		if run != nil {
			return fmt.Errorf("run %s ended in state %s: %w", run.ID, run.State, err)
		}
		return err
	}

	fmt.Printf("run %s completed\n", run.ID)
	if run.StepDetails != nil && run.StepDetails.Assembly != nil {
		fmt.Printf("output: %s\n", run.StepDetails.Assembly.ArtifactPath)
	}
	return nil
}
