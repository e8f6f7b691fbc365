package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/genesis-media/genesis/internal/store"
)

// checksumSize bounds how much of a file is hashed when registering it.
// Large videos make whole-file hashing too slow for an interactive request.
const checksumSize = 64 * 1024

// registerAsset validates the file at req.Path and records it as a media
// asset of the project. Duration is probed best effort; transcription
// backfills it when the probe failed.
func registerAsset(r *http.Request, cfg ServerConfig, projectID string, req RegisterAssetRequest) (*store.MediaAsset, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", req.Path)
	}

	checksum, err := computeChecksum(req.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot checksum file: %w", err)
	}

	filename := req.OriginalFilename
	if filename == "" {
		filename = filepath.Base(req.Path)
	}

	now := time.Now().UTC()
	asset := &store.MediaAsset{
		ID:               store.NewID(),
		ProjectID:        projectID,
		OriginalFilename: filename,
		StorageKey:       req.Path,
		Status:           store.AssetStatusUploaded,
		UploadedAt:       &now,
		Checksum:         checksum,
		MimeType:         mime.TypeByExtension(filepath.Ext(req.Path)),
		CreatedAt:        now,
	}

	if probe, err := cfg.FFmpeg.Probe(r.Context(), req.Path); err == nil && probe.Duration > 0 {
		durationMs := int64(probe.Duration * 1000)
		asset.DurationMs = &durationMs
	} else if err != nil {
		cfg.Logger.Warn("duration probe failed", "path", filepath.Base(req.Path), "error", err)
	}

	if err := cfg.Repository.CreateMediaAsset(r.Context(), asset); err != nil {
		return nil, fmt.Errorf("cannot store asset: %w", err)
	}

	project, err := cfg.Repository.GetProject(r.Context(), projectID)
	if err == nil && project != nil && project.Status == store.ProjectStatusDraft {
		_ = cfg.Repository.UpdateProjectStatus(r.Context(), projectID, store.ProjectStatusReady)
	}

	return asset, nil
}

func computeChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	lr := io.LimitReader(f, checksumSize)
	if _, err := io.Copy(h, lr); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
