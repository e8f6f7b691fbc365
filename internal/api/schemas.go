package api

import (
	"time"

	"github.com/genesis-media/genesis/internal/store"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type ProjectResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type RegisterAssetRequest struct {
	Path             string `json:"path"`
	OriginalFilename string `json:"original_filename,omitempty"`
}

type AssetResponse struct {
	ID               string `json:"id"`
	ProjectID        string `json:"project_id"`
	OriginalFilename string `json:"original_filename"`
	StorageKey       string `json:"storage_key"`
	DurationMs       *int64 `json:"duration_ms,omitempty"`
	Status           string `json:"status"`
	Checksum         string `json:"checksum,omitempty"`
	MimeType         string `json:"mime_type,omitempty"`
	CreatedAt        string `json:"created_at"`
}

type AssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

type StartRunRequest struct {
	RunID               string  `json:"run_id,omitempty"`
	VoiceoverPath       string  `json:"voiceover_path,omitempty"`
	OffsetSeconds       float64 `json:"voiceover_offset_s,omitempty"`
	VoiceoverGain       float64 `json:"voiceover_gain,omitempty"`
	BedGain             float64 `json:"bed_gain,omitempty"`
	TranscriptionPolicy string  `json:"transcription_policy,omitempty"`
	SegmentationPolicy  string  `json:"segmentation_policy,omitempty"`
}

type StartRunResponse struct {
	RunID string `json:"run_id"`
}

type RunResponse struct {
	ID           string             `json:"id"`
	ProjectID    string             `json:"project_id"`
	State        string             `json:"state"`
	StartedAt    string             `json:"started_at,omitempty"`
	EndedAt      string             `json:"ended_at,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	StepDetails  *store.StepDetails `json:"step_details,omitempty"`
	CreatedAt    string             `json:"created_at"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type ArtifactResponse struct {
	ID         string                  `json:"id"`
	RunID      string                  `json:"run_id"`
	Type       string                  `json:"type"`
	StorageKey string                  `json:"storage_key"`
	Metadata   *store.ArtifactMetadata `json:"metadata,omitempty"`
	CreatedAt  string                  `json:"created_at"`
}

type ArtifactsResponse struct {
	Artifacts []ArtifactResponse `json:"artifacts"`
}

func ProjectToResponse(p *store.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

func AssetToResponse(a *store.MediaAsset) AssetResponse {
	return AssetResponse{
		ID:               a.ID,
		ProjectID:        a.ProjectID,
		OriginalFilename: a.OriginalFilename,
		StorageKey:       a.StorageKey,
		DurationMs:       a.DurationMs,
		Status:           a.Status,
		Checksum:         a.Checksum,
		MimeType:         a.MimeType,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
}

func RunToResponse(r *store.Run) RunResponse {
	resp := RunResponse{
		ID:           r.ID,
		ProjectID:    r.ProjectID,
		State:        r.State,
		ErrorMessage: r.ErrorMessage,
		StepDetails:  r.StepDetails,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	if r.StartedAt != nil {
		resp.StartedAt = r.StartedAt.Format(time.RFC3339)
	}
	if r.EndedAt != nil {
		resp.EndedAt = r.EndedAt.Format(time.RFC3339)
	}
	return resp
}

func ArtifactToResponse(a *store.Artifact) ArtifactResponse {
	return ArtifactResponse{
		ID:         a.ID,
		RunID:      a.RunID,
		Type:       a.Type,
		StorageKey: a.StorageKey,
		Metadata:   a.Metadata,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}
