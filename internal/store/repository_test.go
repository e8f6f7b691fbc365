package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/genesis-media/genesis/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

func createTestProject(t *testing.T, repo Repository) *Project {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	p := &Project{
		ID:        NewID(),
		Title:     "Test Project",
		Status:    ProjectStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return p
}

func createTestAsset(t *testing.T, repo Repository, projectID, storageKey string) *MediaAsset {
	t.Helper()
	a := &MediaAsset{
		ID:               NewID(),
		ProjectID:        projectID,
		OriginalFilename: filepath.Base(storageKey),
		StorageKey:       storageKey,
		Status:           AssetStatusUploaded,
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreateMediaAsset(context.Background(), a); err != nil {
		t.Fatalf("CreateMediaAsset() error = %v", err)
	}
	return a
}

func TestRepository_ProjectRoundtrip(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo)

	got, err := repo.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetProject() returned nil")
	}
	if got.Title != p.Title {
		t.Errorf("Title = %s, want %s", got.Title, p.Title)
	}
	if got.Status != ProjectStatusDraft {
		t.Errorf("Status = %s, want %s", got.Status, ProjectStatusDraft)
	}

	if err := repo.UpdateProjectStatus(ctx, p.ID, ProjectStatusReady); err != nil {
		t.Fatalf("UpdateProjectStatus() error = %v", err)
	}
	got, _ = repo.GetProject(ctx, p.ID)
	if got.Status != ProjectStatusReady {
		t.Errorf("Status after update = %s, want %s", got.Status, ProjectStatusReady)
	}
}

func TestRepository_GetProject_NotFound(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	got, err := repo.GetProject(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetProject() = %v, want nil", got)
	}
}

func TestRepository_ListMediaAssets_InsertionOrder(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo)

	// Same created_at for all three; ordering must still be stable.
	keys := []string{"/videos/c.mp4", "/videos/a.mp4", "/videos/b.mp4"}
	for _, k := range keys {
		createTestAsset(t, repo, p.ID, k)
	}

	assets, err := repo.ListMediaAssets(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListMediaAssets() error = %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("got %d assets, want 3", len(assets))
	}
	for i, k := range keys {
		if assets[i].StorageKey != k {
			t.Errorf("assets[%d].StorageKey = %s, want %s", i, assets[i].StorageKey, k)
		}
	}
}

func TestRepository_AssetDurationBackfill(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo)
	a := createTestAsset(t, repo, p.ID, "/videos/a.mp4")

	got, _ := repo.GetMediaAsset(ctx, a.ID)
	if got.DurationMs != nil {
		t.Errorf("DurationMs = %v, want nil", *got.DurationMs)
	}

	if err := repo.UpdateAssetDuration(ctx, a.ID, 4000); err != nil {
		t.Fatalf("UpdateAssetDuration() error = %v", err)
	}
	got, _ = repo.GetMediaAsset(ctx, a.ID)
	if got.DurationMs == nil || *got.DurationMs != 4000 {
		t.Errorf("DurationMs = %v, want 4000", got.DurationMs)
	}
}

func TestRepository_TranscriptRoundtrip(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo)
	a := createTestAsset(t, repo, p.ID, "/videos/a.mp4")

	transcript := &Transcript{
		ID:           NewID(),
		MediaAssetID: a.ID,
		Language:     "en",
		Text:         "hello world",
		Metadata: &TranscriptMetadata{
			Segments: []TranscriptSegment{
				{ID: 0, Start: 0, End: 1.5, Text: "hello"},
				{ID: 1, Start: 1.5, End: 3.0, Text: "world"},
			},
			GeneratedAt: "2026-01-01T00:00:00Z",
			Engine:      EngineInfo{Duration: 3.0, Language: "en", LanguageProbability: 0.99},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreateTranscript(ctx, transcript); err != nil {
		t.Fatalf("CreateTranscript() error = %v", err)
	}

	got, err := repo.GetTranscriptByAsset(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetTranscriptByAsset() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetTranscriptByAsset() returned nil")
	}
	if got.Text != "hello world" {
		t.Errorf("Text = %s, want 'hello world'", got.Text)
	}
	if got.Metadata == nil || len(got.Metadata.Segments) != 2 {
		t.Fatalf("Metadata segments not round-tripped: %+v", got.Metadata)
	}
	if got.Metadata.Engine.Duration != 3.0 {
		t.Errorf("Engine.Duration = %f, want 3.0", got.Metadata.Engine.Duration)
	}

	// A second transcript for the same asset violates the unique constraint.
	dup := *transcript
	dup.ID = NewID()
	if err := repo.CreateTranscript(ctx, &dup); err == nil {
		t.Error("CreateTranscript() with duplicate asset should fail")
	}

	if err := repo.DeleteTranscript(ctx, transcript.ID); err != nil {
		t.Fatalf("DeleteTranscript() error = %v", err)
	}
	got, _ = repo.GetTranscriptByAsset(ctx, a.ID)
	if got != nil {
		t.Error("transcript still present after delete")
	}
}

func TestRepository_SceneAssetDeletionSetsNull(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo)
	a := createTestAsset(t, repo, p.ID, "/videos/a.mp4")

	scene := &Scene{
		ID:           NewID(),
		ProjectID:    p.ID,
		MediaAssetID: a.ID,
		Index:        0,
		StartMs:      0,
		EndMs:        4000,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreateScene(ctx, scene); err != nil {
		t.Fatalf("CreateScene() error = %v", err)
	}

	if err := repo.DeleteMediaAsset(ctx, a.ID); err != nil {
		t.Fatalf("DeleteMediaAsset() error = %v", err)
	}

	scenes, err := repo.ListScenes(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListScenes() error = %v", err)
	}
	if len(scenes) != 1 {
		t.Fatalf("got %d scenes, want 1; scene must outlive its asset", len(scenes))
	}
	if scenes[0].MediaAssetID != "" {
		t.Errorf("MediaAssetID = %s, want empty after asset delete", scenes[0].MediaAssetID)
	}
}

func TestRepository_ScenesOrderedByIndex(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo)
	a := createTestAsset(t, repo, p.ID, "/videos/a.mp4")

	for _, idx := range []int{2, 0, 1} {
		scene := &Scene{
			ID:           NewID(),
			ProjectID:    p.ID,
			MediaAssetID: a.ID,
			Index:        idx,
			StartMs:      int64(idx) * 1000,
			EndMs:        int64(idx+1) * 1000,
			Metadata:     &SceneMetadata{Caption: "scene"},
			CreatedAt:    time.Now().UTC().Truncate(time.Second),
		}
		if err := repo.CreateScene(ctx, scene); err != nil {
			t.Fatalf("CreateScene() error = %v", err)
		}
	}

	scenes, err := repo.ListScenes(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListScenes() error = %v", err)
	}
	for i, s := range scenes {
		if s.Index != i {
			t.Errorf("scenes[%d].Index = %d, want %d", i, s.Index, i)
		}
	}

	if err := repo.DeleteScenesByProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteScenesByProject() error = %v", err)
	}
	scenes, _ = repo.ListScenes(ctx, p.ID)
	if len(scenes) != 0 {
		t.Errorf("got %d scenes after delete, want 0", len(scenes))
	}
}

func TestRepository_RunStepDetailsRoundtrip(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo)
	run := &Run{
		ID:        NewID(),
		ProjectID: p.ID,
		State:     RunStatePending,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	details := &StepDetails{
		Transcription: &TranscriptionSummary{TranscriptsCreated: 2, MediaAssets: []string{"a", "b"}},
		SceneDetection: &SegmentationSummary{
			ScenesCreated:   4,
			CaptionsCreated: 3,
		},
	}
	if err := repo.SaveRunStepDetails(ctx, run.ID, details); err != nil {
		t.Fatalf("SaveRunStepDetails() error = %v", err)
	}

	got, err := repo.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.StepDetails == nil {
		t.Fatal("StepDetails not persisted")
	}
	if got.StepDetails.Transcription == nil || got.StepDetails.Transcription.TranscriptsCreated != 2 {
		t.Errorf("Transcription summary = %+v", got.StepDetails.Transcription)
	}
	if got.StepDetails.SceneDetection == nil || got.StepDetails.SceneDetection.ScenesCreated != 4 {
		t.Errorf("SceneDetection summary = %+v", got.StepDetails.SceneDetection)
	}
	if got.StepDetails.Chapters != nil {
		t.Error("Chapters summary should be absent")
	}
}

func TestRepository_RunStateTransitions(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo)
	run := &Run{ID: NewID(), ProjectID: p.ID, State: RunStatePending, CreatedAt: time.Now().UTC()}
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if err := repo.MarkRunStarted(ctx, run.ID); err != nil {
		t.Fatalf("MarkRunStarted() error = %v", err)
	}
	got, _ := repo.GetRun(ctx, run.ID)
	if got.StartedAt == nil {
		t.Fatal("StartedAt not set")
	}
	firstStart := *got.StartedAt

	// Starting again must not move the original timestamp.
	if err := repo.MarkRunStarted(ctx, run.ID); err != nil {
		t.Fatalf("second MarkRunStarted() error = %v", err)
	}
	got, _ = repo.GetRun(ctx, run.ID)
	if !got.StartedAt.Equal(firstStart) {
		t.Errorf("StartedAt moved on restart: %v -> %v", firstStart, got.StartedAt)
	}

	if err := repo.UpdateRunState(ctx, run.ID, RunStateCompleted, true); err != nil {
		t.Fatalf("UpdateRunState() error = %v", err)
	}
	got, _ = repo.GetRun(ctx, run.ID)
	if got.State != RunStateCompleted {
		t.Errorf("State = %s, want %s", got.State, RunStateCompleted)
	}
	if got.EndedAt == nil {
		t.Error("EndedAt not set on terminal state")
	}
}

func TestRepository_ArtifactReplaceByType(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo)
	run := &Run{ID: NewID(), ProjectID: p.ID, State: RunStatePending, CreatedAt: time.Now().UTC()}
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	first := &Artifact{
		ID:         NewID(),
		RunID:      run.ID,
		Type:       ArtifactTypeCombinedVideo,
		StorageKey: "/out/v1.mp4",
		Metadata:   &ArtifactMetadata{SceneCount: 2},
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreateArtifact(ctx, first); err != nil {
		t.Fatalf("CreateArtifact() error = %v", err)
	}
	other := &Artifact{
		ID:         NewID(),
		RunID:      run.ID,
		Type:       ArtifactTypeLog,
		StorageKey: "/out/vo.wav",
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreateArtifact(ctx, other); err != nil {
		t.Fatalf("CreateArtifact() error = %v", err)
	}

	if err := repo.DeleteArtifactsByType(ctx, run.ID, ArtifactTypeCombinedVideo); err != nil {
		t.Fatalf("DeleteArtifactsByType() error = %v", err)
	}
	second := &Artifact{
		ID:         NewID(),
		RunID:      run.ID,
		Type:       ArtifactTypeCombinedVideo,
		StorageKey: "/out/v2.mp4",
		Metadata:   &ArtifactMetadata{SceneCount: 3, VoiceoverApplied: true},
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreateArtifact(ctx, second); err != nil {
		t.Fatalf("CreateArtifact() error = %v", err)
	}

	artifacts, err := repo.ListArtifactsByRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListArtifactsByRun() error = %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("got %d artifacts, want 2", len(artifacts))
	}

	videos := 0
	for _, a := range artifacts {
		if a.Type == ArtifactTypeCombinedVideo {
			videos++
			if a.StorageKey != "/out/v2.mp4" {
				t.Errorf("combined video StorageKey = %s, want /out/v2.mp4", a.StorageKey)
			}
			if a.Metadata == nil || !a.Metadata.VoiceoverApplied {
				t.Errorf("combined video metadata = %+v", a.Metadata)
			}
		}
	}
	if videos != 1 {
		t.Errorf("got %d combined video artifacts, want exactly 1", videos)
	}

	byProject, err := repo.ListArtifactsByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListArtifactsByProject() error = %v", err)
	}
	if len(byProject) != 2 {
		t.Errorf("ListArtifactsByProject() = %d artifacts, want 2", len(byProject))
	}
}

func TestRepository_WithTx(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo)
	a := createTestAsset(t, repo, p.ID, "/videos/a.mp4")

	newScene := func(idx int) *Scene {
		return &Scene{
			ID:           NewID(),
			ProjectID:    p.ID,
			MediaAssetID: a.ID,
			Index:        idx,
			StartMs:      int64(idx) * 1000,
			EndMs:        int64(idx+1) * 1000,
			CreatedAt:    time.Now().UTC().Truncate(time.Second),
		}
	}

	err := repo.WithTx(ctx, func(tx Repository) error {
		for i := 0; i < 3; i++ {
			if err := tx.CreateScene(ctx, newScene(i)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
	scenes, _ := repo.ListScenes(ctx, p.ID)
	if len(scenes) != 3 {
		t.Fatalf("got %d scenes after commit, want 3", len(scenes))
	}

	// A failing callback rolls back every write in the group, so the old
	// rows survive a delete-then-recreate that dies halfway.
	boom := errors.New("boom")
	err = repo.WithTx(ctx, func(tx Repository) error {
		if err := tx.DeleteScenesByProject(ctx, p.ID); err != nil {
			return err
		}
		if err := tx.CreateScene(ctx, newScene(0)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}
	scenes, _ = repo.ListScenes(ctx, p.ID)
	if len(scenes) != 3 {
		t.Errorf("got %d scenes after rollback, want the original 3", len(scenes))
	}

	// Nested use is a passthrough rather than a second transaction.
	err = repo.WithTx(ctx, func(tx Repository) error {
		return tx.WithTx(ctx, func(inner Repository) error {
			return inner.CreateScene(ctx, newScene(3))
		})
	})
	if err != nil {
		t.Fatalf("nested WithTx() error = %v", err)
	}
	scenes, _ = repo.ListScenes(ctx, p.ID)
	if len(scenes) != 4 {
		t.Errorf("got %d scenes after nested tx, want 4", len(scenes))
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	got, err := repo.GetConfig(ctx, "auth_token")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if got != "" {
		t.Errorf("GetConfig() = %s, want empty", got)
	}

	if err := repo.SetConfig(ctx, "auth_token", "secret"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "rotated"); err != nil {
		t.Fatalf("SetConfig() upsert error = %v", err)
	}

	got, _ = repo.GetConfig(ctx, "auth_token")
	if got != "rotated" {
		t.Errorf("GetConfig() = %s, want rotated", got)
	}
}
