package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/genesis-media/genesis/internal/store"
)

// runNarration normalises the voiceover file to 48 kHz stereo WAV and records
// it as the run's narration artifact. The actual mix happens during assembly.
func (o *Orchestrator) runNarration(ctx context.Context, project *store.Project, run *store.Run, opts Options, logger *slog.Logger) (*store.VoiceoverSummary, error) {
	if !fileReadable(opts.VoiceoverPath) {
		return nil, fmt.Errorf("%w: %s", ErrAssetMissing, filepath.Base(opts.VoiceoverPath))
	}

	voiceoverDir := filepath.Join(o.artifactRoot, "voiceovers")
	if err := os.MkdirAll(voiceoverDir, 0755); err != nil {
		return nil, fmt.Errorf("create voiceover dir: %w", err)
	}

	wavPath := filepath.Join(voiceoverDir, fmt.Sprintf("project_%s_run_%s.wav", project.ID, run.ID))
	if err := o.ffmpeg.ConvertToWAV(ctx, opts.VoiceoverPath, wavPath); err != nil {
		return nil, fmt.Errorf("convert voiceover: %w", err)
	}

	artifact := &store.Artifact{
		ID:         store.NewID(),
		RunID:      run.ID,
		Type:       store.ArtifactTypeLog,
		StorageKey: wavPath,
		Metadata: &store.ArtifactMetadata{
			Kind:          "voiceover",
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
			OriginalPath:  opts.VoiceoverPath,
			WavPath:       wavPath,
			OffsetSeconds: opts.OffsetSeconds,
			VoiceoverGain: opts.VoiceoverGain,
			BedGain:       opts.BedGain,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := o.repo.WithTx(ctx, func(repo store.Repository) error {
		if err := repo.DeleteArtifactsByType(ctx, run.ID, store.ArtifactTypeLog); err != nil {
			return fmt.Errorf("replace narration artifact: %w", err)
		}
		if err := repo.CreateArtifact(ctx, artifact); err != nil {
			return fmt.Errorf("store narration artifact: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Info("narration prepared", "wav", wavPath)
	return &store.VoiceoverSummary{
		ArtifactID:    artifact.ID,
		WavPath:       wavPath,
		OffsetSeconds: opts.OffsetSeconds,
		VoiceoverGain: opts.VoiceoverGain,
		BedGain:       opts.BedGain,
	}, nil
}
