package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/genesis-media/genesis/internal/engines"
	"github.com/genesis-media/genesis/internal/store"
)

// fallbackSceneDurationMs is used when an asset has no detected boundaries
// and its duration is unknown.
const fallbackSceneDurationMs = 5000

// runSegmentation rebuilds the project's scene list from detected boundaries
// and annotates each scene with a preview frame and caption.
func (o *Orchestrator) runSegmentation(ctx context.Context, project *store.Project, assets []*store.MediaAsset, policy IdempotencyPolicy, logger *slog.Logger) (*store.SegmentationSummary, error) {
	if policy == PolicySkipIfPresent {
		existing, err := o.repo.ListScenes(ctx, project.ID)
		if err != nil {
			return nil, fmt.Errorf("list scenes: %w", err)
		}
		if len(existing) > 0 {
			captions := 0
			for _, s := range existing {
				if s.Metadata != nil && s.Metadata.Caption != "" {
					captions++
				}
			}
			logger.Info("scenes exist, skipping segmentation", "count", len(existing))
			return &store.SegmentationSummary{ScenesCreated: len(existing), CaptionsCreated: captions}, nil
		}
	}

	detections, err := forEachOrdered(ctx, len(assets), o.concurrency, func(ctx context.Context, i int) (*engines.BoundaryResult, error) {
		a := assets[i]
		if !fileReadable(a.StorageKey) {
			return nil, fmt.Errorf("%w: %s", ErrMediaMissing, a.OriginalFilename)
		}
		res, err := o.detector.DetectBoundaries(ctx, a.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("detect scenes in %s: %w", a.OriginalFilename, err)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	// Build all scene rows first, then annotate and insert. Indices are
	// assigned globally across assets in insertion order, then ranges in
	// detected order.
	type sceneRow struct {
		scene    *store.Scene
		detected engines.SceneRange
	}
	var scenes []*sceneRow
	index := 0
	for i, a := range assets {
		for _, rng := range assetRanges(detections[i], a.DurationMs) {
			scenes = append(scenes, &sceneRow{
				scene: &store.Scene{
					ID:           store.NewID(),
					ProjectID:    project.ID,
					MediaAssetID: a.ID,
					Index:        index,
					StartMs:      rng.StartMs,
					EndMs:        rng.EndMs,
					CreatedAt:    time.Now().UTC(),
				},
				detected: rng,
			})
			index++
		}
	}

	previewDir := filepath.Join(o.artifactRoot, "previews", project.ID)
	if err := os.MkdirAll(previewDir, 0755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}

	assetByID := make(map[string]*store.MediaAsset, len(assets))
	for _, a := range assets {
		assetByID[a.ID] = a
	}

	type annotation struct {
		previewURI string
		caption    string
	}

	// The caption engine consumes the extracted frame, so a failed frame
	// extraction or caption fails the stage.
	annotations, err := forEachOrdered(ctx, len(scenes), o.concurrency, func(ctx context.Context, i int) (annotation, error) {
		s := scenes[i].scene
		a := assetByID[s.MediaAssetID]
		midpointMs := previewTimestamp(s.StartMs, s.EndMs)

		previewPath := filepath.Join(previewDir, fmt.Sprintf("scene_%04d.jpg", s.Index))
		if err := o.ffmpeg.ExtractFrame(ctx, a.StorageKey, previewPath, midpointMs); err != nil {
			return annotation{}, fmt.Errorf("extract preview for scene %d: %w", s.Index, err)
		}

		res, err := o.captioner.Caption(ctx, previewPath)
		if err != nil {
			return annotation{}, fmt.Errorf("caption scene %d: %w", s.Index, err)
		}
		return annotation{previewURI: previewPath, caption: res.Caption}, nil
	})
	if err != nil {
		return nil, err
	}

	captionsCreated := 0
	for i, row := range scenes {
		s := row.scene
		ann := annotations[i]
		s.PreviewURI = ann.previewURI
		s.Label = ann.caption
		s.Metadata = &store.SceneMetadata{
			StartTimecode: timecodeOr(row.detected.StartTimecode, s.StartMs),
			EndTimecode:   timecodeOr(row.detected.EndTimecode, s.EndMs),
			Caption:       ann.caption,
			PreviewURI:    ann.previewURI,
		}
		if ann.caption != "" {
			captionsCreated++
		}
	}

	if err := o.repo.WithTx(ctx, func(repo store.Repository) error {
		if err := repo.DeleteScenesByProject(ctx, project.ID); err != nil {
			return fmt.Errorf("clear scenes: %w", err)
		}
		for _, row := range scenes {
			if err := repo.CreateScene(ctx, row.scene); err != nil {
				return fmt.Errorf("store scene %d: %w", row.scene.Index, err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Info("segmentation complete", "scenes", len(scenes), "captions", captionsCreated)
	return &store.SegmentationSummary{
		ScenesCreated:   len(scenes),
		CaptionsCreated: captionsCreated,
	}, nil
}

// assetRanges returns the detector's scene ranges for one asset, or the
// fallback single range over the whole asset when the detector found no cuts.
// The fallback duration comes from the detector, then the asset row, then a
// fixed window when neither knows it.
func assetRanges(res *engines.BoundaryResult, assetDurationMs *int64) []engines.SceneRange {
	if len(res.Scenes) > 0 {
		return res.Scenes
	}
	durationMs := res.TotalDurationMs
	if durationMs <= 0 && assetDurationMs != nil {
		durationMs = *assetDurationMs
	}
	if durationMs <= 0 {
		durationMs = fallbackSceneDurationMs
	}
	return []engines.SceneRange{{StartMs: 0, EndMs: durationMs}}
}

// previewTimestamp is the segment midpoint, or the start for zero or
// negative-length segments.
func previewTimestamp(startMs, endMs int64) int64 {
	if endMs <= startMs {
		return startMs
	}
	return startMs + (endMs-startMs)/2
}

// timecodeOr prefers the detector's own timecode and synthesizes one from
// the millisecond offset otherwise.
func timecodeOr(detected string, ms int64) string {
	if detected != "" {
		return detected
	}
	return formatTimecode(ms)
}

func formatTimecode(ms int64) string {
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	frac := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
}
