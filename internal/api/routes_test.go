package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/genesis-media/genesis/internal/db"
	"github.com/genesis-media/genesis/internal/media"
	"github.com/genesis-media/genesis/internal/pipeline"
	"github.com/genesis-media/genesis/internal/store"
)

const testToken = "test-token"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestServer(t *testing.T) (*httptest.Server, store.Repository) {
	t.Helper()
	tmpDir := t.TempDir()

	database, err := db.New(filepath.Join(tmpDir, "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := store.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	logger := testLogger()
	ffmpeg := media.NewStubFFmpeg(logger)
	orch := pipeline.NewOrchestrator(repo, nil, nil, nil, ffmpeg, filepath.Join(tmpDir, "artifacts"), logger)
	runs := NewRunManager(orch, logger)

	router := NewRouter(ServerConfig{
		Port:       0,
		Repository: repo,
		Runs:       runs,
		FFmpeg:     ffmpeg,
		Logger:     logger,
		StartTime:  time.Now(),
		Version:    "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, repo
}

func doRequest(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body error = %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request error = %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response error = %v", err)
	}
	return v
}

func TestHealth_NoAuthRequired(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	health := decode[HealthResponse](t, resp)
	if health.Status != "ok" {
		t.Errorf("health.Status = %s, want ok", health.Status)
	}
}

func TestAuth_MissingToken(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/projects")
	if err != nil {
		t.Fatalf("GET /projects error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuth_WrongToken(t *testing.T) {
	srv, _ := setupTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCreateProject(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/projects", CreateProjectRequest{Title: "My Highlights"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	project := decode[ProjectResponse](t, resp)
	if project.ID == "" {
		t.Error("project.ID is empty")
	}
	if project.Title != "My Highlights" {
		t.Errorf("project.Title = %s, want 'My Highlights'", project.Title)
	}
	if project.Status != store.ProjectStatusDraft {
		t.Errorf("project.Status = %s, want %s", project.Status, store.ProjectStatusDraft)
	}
}

func TestCreateProject_TitleRequired(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/projects", CreateProjectRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/projects/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRegisterAsset(t *testing.T) {
	srv, _ := setupTestServer(t)

	created := decode[ProjectResponse](t,
		doRequest(t, http.MethodPost, srv.URL+"/projects", CreateProjectRequest{Title: "P"}))

	mediaPath := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(mediaPath, []byte("fake video content"), 0644); err != nil {
		t.Fatalf("write media file error = %v", err)
	}

	resp := doRequest(t, http.MethodPost, srv.URL+"/projects/"+created.ID+"/assets",
		RegisterAssetRequest{Path: mediaPath})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	asset := decode[AssetResponse](t, resp)
	if asset.OriginalFilename != "clip.mp4" {
		t.Errorf("OriginalFilename = %s, want clip.mp4", asset.OriginalFilename)
	}
	if asset.Checksum == "" {
		t.Error("Checksum is empty")
	}
	if asset.Status != store.AssetStatusUploaded {
		t.Errorf("Status = %s, want %s", asset.Status, store.AssetStatusUploaded)
	}

	// Registering media promotes a draft project to ready.
	project := decode[ProjectResponse](t,
		doRequest(t, http.MethodGet, srv.URL+"/projects/"+created.ID, nil))
	if project.Status != store.ProjectStatusReady {
		t.Errorf("project.Status = %s, want %s", project.Status, store.ProjectStatusReady)
	}
}

func TestRegisterAsset_MissingFile(t *testing.T) {
	srv, _ := setupTestServer(t)

	created := decode[ProjectResponse](t,
		doRequest(t, http.MethodPost, srv.URL+"/projects", CreateProjectRequest{Title: "P"}))

	resp := doRequest(t, http.MethodPost, srv.URL+"/projects/"+created.ID+"/assets",
		RegisterAssetRequest{Path: "/nonexistent/clip.mp4"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStartRun_CreatesRun(t *testing.T) {
	srv, repo := setupTestServer(t)

	created := decode[ProjectResponse](t,
		doRequest(t, http.MethodPost, srv.URL+"/projects", CreateProjectRequest{Title: "P"}))

	resp := doRequest(t, http.MethodPost, srv.URL+"/projects/"+created.ID+"/runs", StartRunRequest{})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	started := decode[StartRunResponse](t, resp)
	if started.RunID == "" {
		t.Fatal("RunID is empty")
	}

	run, err := repo.GetRun(context.Background(), started.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run == nil {
		t.Fatal("run row not created before response")
	}

	// The project has no assets, so the background run ends in failure.
	deadline := time.After(5 * time.Second)
	for {
		run, _ = repo.GetRun(context.Background(), started.RunID)
		if run != nil && run.State == store.RunStateFailed {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("run did not finish, state = %s", run.State)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestStartRun_UnknownResumeID(t *testing.T) {
	srv, repo := setupTestServer(t)

	created := decode[ProjectResponse](t,
		doRequest(t, http.MethodPost, srv.URL+"/projects", CreateProjectRequest{Title: "P"}))

	// Resuming a run that does not exist is rejected before anything starts.
	resp := doRequest(t, http.MethodPost, srv.URL+"/projects/"+created.ID+"/runs",
		StartRunRequest{RunID: "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	// A run belonging to another project is just as unknown here.
	other := decode[ProjectResponse](t,
		doRequest(t, http.MethodPost, srv.URL+"/projects", CreateProjectRequest{Title: "Q"}))
	run := &store.Run{
		ID:        store.NewID(),
		ProjectID: other.ID,
		State:     store.RunStateFailed,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	resp = doRequest(t, http.MethodPost, srv.URL+"/projects/"+created.ID+"/runs",
		StartRunRequest{RunID: run.ID})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-project status = %d, want 404", resp.StatusCode)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/runs/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCancelRun_NotInFlight(t *testing.T) {
	srv, repo := setupTestServer(t)

	created := decode[ProjectResponse](t,
		doRequest(t, http.MethodPost, srv.URL+"/projects", CreateProjectRequest{Title: "P"}))

	run := &store.Run{
		ID:        store.NewID(),
		ProjectID: created.ID,
		State:     store.RunStateCompleted,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	resp := doRequest(t, http.MethodPost, srv.URL+"/runs/"+run.ID+"/cancel", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestDownloadArtifact(t *testing.T) {
	srv, repo := setupTestServer(t)

	created := decode[ProjectResponse](t,
		doRequest(t, http.MethodPost, srv.URL+"/projects", CreateProjectRequest{Title: "P"}))
	run := &store.Run{ID: store.NewID(), ProjectID: created.ID, State: store.RunStateCompleted, CreatedAt: time.Now().UTC()}
	if err := repo.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "combined.mp4")
	if err := os.WriteFile(outPath, []byte("rendered video"), 0644); err != nil {
		t.Fatalf("write artifact file error = %v", err)
	}
	artifact := &store.Artifact{
		ID:         store.NewID(),
		RunID:      run.ID,
		Type:       store.ArtifactTypeCombinedVideo,
		StorageKey: outPath,
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.CreateArtifact(context.Background(), artifact); err != nil {
		t.Fatalf("CreateArtifact() error = %v", err)
	}

	resp := doRequest(t, http.MethodGet, srv.URL+"/artifacts/"+artifact.ID+"/download", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "rendered video" {
		t.Errorf("body = %q, want rendered video", string(data))
	}

	missing := doRequest(t, http.MethodGet, srv.URL+"/artifacts/missing/download", nil)
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing artifact status = %d, want 404", missing.StatusCode)
	}
}
