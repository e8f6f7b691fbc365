package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/genesis-media/genesis/internal/store"
)

// Stage exports write a JSON snapshot of each stage's output next to the
// run's other artifacts so downstream tooling can consume results without a
// database connection.

func (o *Orchestrator) exportTranscripts(ctx context.Context, projectID, runID string) error {
	transcripts, err := o.repo.ListTranscriptsByProject(ctx, projectID)
	if err != nil {
		return err
	}
	return o.writeStageArtifact(ctx, runID, store.ArtifactTypeTranscriptJSON, "transcripts.json", transcripts, len(transcripts))
}

func (o *Orchestrator) exportScenes(ctx context.Context, projectID, runID string) error {
	scenes, err := o.repo.ListScenes(ctx, projectID)
	if err != nil {
		return err
	}
	return o.writeStageArtifact(ctx, runID, store.ArtifactTypeSceneJSON, "scenes.json", scenes, len(scenes))
}

func (o *Orchestrator) exportChapters(ctx context.Context, projectID, runID string) error {
	chapters, err := o.repo.ListChapters(ctx, projectID)
	if err != nil {
		return err
	}

	type chapterExport struct {
		*store.Chapter
		SceneIDs []string `json:"scene_ids"`
	}
	exports := make([]chapterExport, 0, len(chapters))
	for _, c := range chapters {
		links, err := o.repo.ListChapterScenes(ctx, c.ID)
		if err != nil {
			return err
		}
		sceneIDs := make([]string, len(links))
		for i, l := range links {
			sceneIDs[i] = l.SceneID
		}
		exports = append(exports, chapterExport{Chapter: c, SceneIDs: sceneIDs})
	}
	return o.writeStageArtifact(ctx, runID, store.ArtifactTypeChapterJSON, "chapters.json", exports, len(exports))
}

func (o *Orchestrator) writeStageArtifact(ctx context.Context, runID, artifactType, filename string, payload any, itemCount int) error {
	runDir := filepath.Join(o.artifactRoot, "runs", runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("create run artifact dir: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filename, err)
	}

	path := filepath.Join(runDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}

	return o.repo.WithTx(ctx, func(repo store.Repository) error {
		if err := repo.DeleteArtifactsByType(ctx, runID, artifactType); err != nil {
			return fmt.Errorf("replace %s artifact: %w", artifactType, err)
		}
		return repo.CreateArtifact(ctx, &store.Artifact{
			ID:         store.NewID(),
			RunID:      runID,
			Type:       artifactType,
			StorageKey: path,
			Metadata: &store.ArtifactMetadata{
				Kind:        artifactType,
				GeneratedAt: time.Now().UTC().Format(time.RFC3339),
				ItemCount:   itemCount,
			},
			CreatedAt: time.Now().UTC(),
		})
	})
}
