package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/genesis-media/genesis/internal/engines"
	"github.com/genesis-media/genesis/internal/store"
)

// runTranscription transcribes every media asset of the project. Engine
// calls fan out with bounded concurrency; database writes happen afterwards
// on the calling goroutine, in asset order.
func (o *Orchestrator) runTranscription(ctx context.Context, project *store.Project, assets []*store.MediaAsset, policy IdempotencyPolicy, logger *slog.Logger) (*store.TranscriptionSummary, error) {
	type job struct {
		asset  *store.MediaAsset
		result *engines.TranscribeResult
	}

	var pending []*store.MediaAsset
	processed := make([]string, 0, len(assets))
	for _, a := range assets {
		if policy == PolicySkipIfPresent {
			existing, err := o.repo.GetTranscriptByAsset(ctx, a.ID)
			if err != nil {
				return nil, fmt.Errorf("check existing transcript: %w", err)
			}
			if existing != nil {
				logger.Info("transcript exists, skipping", "media_asset_id", a.ID)
				processed = append(processed, a.ID)
				continue
			}
		}
		if !fileReadable(a.StorageKey) {
			return nil, fmt.Errorf("%w: %s", ErrMediaMissing, a.OriginalFilename)
		}
		pending = append(pending, a)
	}

	results, err := forEachOrdered(ctx, len(pending), o.concurrency, func(ctx context.Context, i int) (job, error) {
		a := pending[i]
		res, err := o.transcriber.Transcribe(ctx, a.StorageKey)
		if err != nil {
			return job{}, fmt.Errorf("transcribe %s: %w", a.OriginalFilename, err)
		}
		return job{asset: a, result: res}, nil
	})
	if err != nil {
		return nil, err
	}

	created := 0
	if err := o.repo.WithTx(ctx, func(repo store.Repository) error {
		for _, j := range results {
			transcript := buildTranscript(j.asset.ID, j.result)
			if policy == PolicyRecompute {
				existing, err := repo.GetTranscriptByAsset(ctx, j.asset.ID)
				if err != nil {
					return fmt.Errorf("check existing transcript: %w", err)
				}
				if existing != nil {
					// transcripts are unique per asset; recompute replaces
					if err := repo.DeleteTranscript(ctx, existing.ID); err != nil {
						return fmt.Errorf("replace transcript: %w", err)
					}
				}
			}
			if err := repo.CreateTranscript(ctx, transcript); err != nil {
				return fmt.Errorf("store transcript: %w", err)
			}
			created++
			processed = append(processed, j.asset.ID)

			if j.asset.DurationMs == nil && j.result.Info.Duration > 0 {
				durationMs := int64(j.result.Info.Duration * 1000)
				if err := repo.UpdateAssetDuration(ctx, j.asset.ID, durationMs); err != nil {
					return fmt.Errorf("backfill asset duration: %w", err)
				}
				j.asset.DurationMs = &durationMs
			}
			if err := repo.UpdateAssetStatus(ctx, j.asset.ID, store.AssetStatusReady); err != nil {
				return fmt.Errorf("update asset status: %w", err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Info("transcription complete", "created", created, "skipped", len(processed)-created)
	return &store.TranscriptionSummary{
		TranscriptsCreated: created,
		MediaAssets:        processed,
	}, nil
}

func buildTranscript(assetID string, res *engines.TranscribeResult) *store.Transcript {
	text := strings.TrimSpace(res.Text)
	if text == "" {
		parts := make([]string, 0, len(res.Segments))
		for _, s := range res.Segments {
			if t := strings.TrimSpace(s.Text); t != "" {
				parts = append(parts, t)
			}
		}
		text = strings.Join(parts, " ")
	}

	segments := make([]store.TranscriptSegment, len(res.Segments))
	for i, s := range res.Segments {
		segments[i] = store.TranscriptSegment{
			ID:               s.ID,
			Start:            s.Start,
			End:              s.End,
			Text:             s.Text,
			AvgLogProb:       s.AvgLogProb,
			Temperature:      s.Temperature,
			CompressionRatio: s.CompressionRatio,
		}
	}

	language := res.Language
	if language == "" {
		language = res.Info.Language
	}

	return &store.Transcript{
		ID:           store.NewID(),
		MediaAssetID: assetID,
		Language:     language,
		Text:         text,
		Metadata: &store.TranscriptMetadata{
			Segments:    segments,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Engine: store.EngineInfo{
				Duration:            res.Info.Duration,
				Language:            res.Info.Language,
				LanguageProbability: res.Info.LanguageProbability,
			},
		},
		CreatedAt: time.Now().UTC(),
	}
}
