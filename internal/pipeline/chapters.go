package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/genesis-media/genesis/internal/store"
)

// runChapterization groups the project's scenes into chapters. The current
// grouping is a single chapter spanning all scenes; the join table keeps the
// scene ordering so finer groupings slot in without schema changes.
func (o *Orchestrator) runChapterization(ctx context.Context, project *store.Project, logger *slog.Logger) (*store.ChapterSummary, error) {
	scenes, err := o.repo.ListScenes(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}

	if err := o.repo.WithTx(ctx, func(repo store.Repository) error {
		if err := repo.DeleteChaptersByProject(ctx, project.ID); err != nil {
			return fmt.Errorf("clear chapters: %w", err)
		}
		if len(scenes) == 0 {
			return nil
		}

		startMs := scenes[0].StartMs
		endMs := scenes[0].EndMs
		for _, s := range scenes[1:] {
			if s.StartMs < startMs {
				startMs = s.StartMs
			}
			if s.EndMs > endMs {
				endMs = s.EndMs
			}
		}

		chapter := &store.Chapter{
			ID:        store.NewID(),
			ProjectID: project.ID,
			Index:     0,
			StartMs:   startMs,
			EndMs:     endMs,
			Title:     "Chapter 1",
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.CreateChapter(ctx, chapter); err != nil {
			return fmt.Errorf("store chapter: %w", err)
		}

		for i, s := range scenes {
			link := &store.ChapterScene{
				ID:         store.NewID(),
				ChapterID:  chapter.ID,
				SceneID:    s.ID,
				OrderIndex: i,
			}
			if err := repo.CreateChapterScene(ctx, link); err != nil {
				return fmt.Errorf("store chapter scene: %w", err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if len(scenes) == 0 {
		logger.Info("no scenes, no chapters")
		return &store.ChapterSummary{ChaptersCreated: 0}, nil
	}
	logger.Info("chapterization complete", "chapters", 1, "scenes", len(scenes))
	return &store.ChapterSummary{ChaptersCreated: 1}, nil
}
