package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/genesis-media/genesis/internal/media"
	"github.com/genesis-media/genesis/internal/store"
)

// runAssembly trims every scene into a standalone clip, concatenates the
// clips into one video and, when narration was prepared, mixes the voiceover
// over the result.
func (o *Orchestrator) runAssembly(ctx context.Context, project *store.Project, run *store.Run, voiceover *store.VoiceoverSummary, opts Options, logger *slog.Logger) (*store.AssemblySummary, error) {
	scenes, err := o.repo.ListScenes(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	if len(scenes) == 0 {
		return nil, ErrNoScenes
	}

	assets, err := o.repo.ListMediaAssets(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("list media assets: %w", err)
	}
	assetByID := make(map[string]*store.MediaAsset, len(assets))
	for _, a := range assets {
		assetByID[a.ID] = a
	}

	segmentDir := filepath.Join(o.artifactRoot, fmt.Sprintf("segments_%s", run.ID))
	if err := os.MkdirAll(segmentDir, 0755); err != nil {
		return nil, fmt.Errorf("create segment dir: %w", err)
	}
	defer cleanupSegmentDir(segmentDir, logger)

	clipPaths, err := forEachOrdered(ctx, len(scenes), o.concurrency, func(ctx context.Context, i int) (string, error) {
		s := scenes[i]
		a := assetByID[s.MediaAssetID]
		if a == nil || !fileReadable(a.StorageKey) {
			return "", fmt.Errorf("%w: scene %d source", ErrMediaMissing, s.Index)
		}
		clipPath := filepath.Join(segmentDir, fmt.Sprintf("scene_%04d.mp4", s.Index))
		if err := o.ffmpeg.TrimSegment(ctx, a.StorageKey, clipPath, s.StartMs, s.EndMs); err != nil {
			return "", fmt.Errorf("trim scene %d: %w", s.Index, err)
		}
		return clipPath, nil
	})
	if err != nil {
		return nil, err
	}

	outputDir := filepath.Join(o.artifactRoot, "outputs")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	listPath := filepath.Join(segmentDir, "concat.txt")
	if err := media.WriteConcatList(listPath, clipPaths); err != nil {
		return nil, fmt.Errorf("write concat list: %w", err)
	}

	combinedPath := filepath.Join(outputDir, fmt.Sprintf("combined_%s.mp4", run.ID))
	if err := o.ffmpeg.Concatenate(ctx, listPath, combinedPath); err != nil {
		return nil, fmt.Errorf("concatenate scenes: %w", err)
	}

	finalPath := combinedPath
	voiceoverApplied := false
	if voiceover != nil {
		narratedPath := filepath.Join(outputDir, fmt.Sprintf("combined_%s_narrated.mp4", run.ID))
		err := o.ffmpeg.MixNarration(ctx, combinedPath, voiceover.WavPath, narratedPath,
			voiceover.OffsetSeconds, voiceover.VoiceoverGain, voiceover.BedGain)
		if err != nil {
			return nil, fmt.Errorf("mix narration: %w", err)
		}
		// the un-narrated intermediate is no longer needed
		if err := os.Remove(combinedPath); err != nil {
			logger.Warn("cannot remove intermediate video", "error", err)
		}
		finalPath = narratedPath
		voiceoverApplied = true
	}

	artifact := &store.Artifact{
		ID:         store.NewID(),
		RunID:      run.ID,
		Type:       store.ArtifactTypeCombinedVideo,
		StorageKey: finalPath,
		Metadata: &store.ArtifactMetadata{
			Kind:             "combined_video",
			GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
			SceneCount:       len(scenes),
			VoiceoverApplied: voiceoverApplied,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := o.repo.WithTx(ctx, func(repo store.Repository) error {
		if err := repo.DeleteArtifactsByType(ctx, run.ID, store.ArtifactTypeCombinedVideo); err != nil {
			return fmt.Errorf("replace combined video artifact: %w", err)
		}
		if err := repo.CreateArtifact(ctx, artifact); err != nil {
			return fmt.Errorf("store combined video artifact: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Info("assembly complete",
		"output", finalPath,
		"scenes", len(scenes),
		"voiceover", voiceoverApplied,
	)
	return &store.AssemblySummary{
		ArtifactID:   artifact.ID,
		ArtifactPath: finalPath,
		SceneCount:   len(scenes),
	}, nil
}

// cleanupSegmentDir removes the intermediate clips. A non-empty directory
// left behind by a concurrent writer is tolerated.
func cleanupSegmentDir(dir string, logger *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			logger.Warn("cannot remove segment file", "name", e.Name(), "error", err)
		}
	}
	_ = os.Remove(dir)
}
