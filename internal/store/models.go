// Package store holds the persistent entities of the Genesis pipeline and
// their sqlite-backed repository: projects, media assets, transcripts,
// scenes, chapters, runs and artifacts.
package store

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProjectStatusDraft      = "draft"
	ProjectStatusUploading  = "uploading"
	ProjectStatusReady      = "ready"
	ProjectStatusProcessing = "processing"
	ProjectStatusCompleted  = "completed"
	ProjectStatusFailed     = "failed"

	AssetStatusPending    = "pending"
	AssetStatusUploaded   = "uploaded"
	AssetStatusProcessing = "processing"
	AssetStatusReady      = "ready"
	AssetStatusFailed     = "failed"

	RunStatePending        = "pending"
	RunStateValidating     = "validating"
	RunStateTranscribing   = "transcribing"
	RunStateSceneDetecting = "scene_detecting"
	RunStateChapterizing   = "chapterizing"
	RunStateAssembling     = "assembling"
	RunStateCompleted      = "completed"
	RunStateFailed         = "failed"
	RunStateCancelled      = "cancelled"

	ArtifactTypeTranscriptJSON = "transcript_json"
	ArtifactTypeSceneJSON      = "scene_json"
	ArtifactTypeChapterJSON    = "chapter_json"
	ArtifactTypeCombinedVideo  = "combined_video"
	ArtifactTypeLog            = "log"
)

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MediaAsset struct {
	ID               string     `json:"id"`
	ProjectID        string     `json:"project_id"`
	OriginalFilename string     `json:"original_filename"`
	StorageKey       string     `json:"storage_key"`
	DurationMs       *int64     `json:"duration_ms,omitempty"`
	Status           string     `json:"status"`
	UploadedAt       *time.Time `json:"uploaded_at,omitempty"`
	Checksum         string     `json:"checksum,omitempty"`
	MimeType         string     `json:"mime_type,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TranscriptSegment is one time-coded span of recognised speech.
type TranscriptSegment struct {
	ID               int     `json:"id"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	AvgLogProb       float64 `json:"avg_logprob"`
	Temperature      float64 `json:"temperature"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// EngineInfo captures what the transcription backend reported about a file.
type EngineInfo struct {
	Duration            float64 `json:"duration"`
	Language            string  `json:"language,omitempty"`
	LanguageProbability float64 `json:"language_probability,omitempty"`
}

type TranscriptMetadata struct {
	Segments    []TranscriptSegment `json:"segments"`
	GeneratedAt string              `json:"generated_at"`
	Engine      EngineInfo          `json:"engine_info"`
}

// Transcript is created once per media asset and never mutated afterwards.
type Transcript struct {
	ID           string              `json:"id"`
	MediaAssetID string              `json:"media_asset_id"`
	Language     string              `json:"language,omitempty"`
	Text         string              `json:"text"`
	Metadata     *TranscriptMetadata `json:"metadata,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

type SceneMetadata struct {
	StartTimecode string `json:"start_timecode,omitempty"`
	EndTimecode   string `json:"end_timecode,omitempty"`
	Caption       string `json:"caption,omitempty"`
	PreviewURI    string `json:"preview_uri,omitempty"`
}

// Scene is a contiguous [StartMs, EndMs) range within one media asset.
// MediaAssetID is empty when the source asset has been deleted; the scene
// outlives it.
type Scene struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	MediaAssetID string         `json:"media_asset_id,omitempty"`
	Index        int            `json:"index"`
	StartMs      int64          `json:"start_ms"`
	EndMs        int64          `json:"end_ms"`
	Label        string         `json:"label,omitempty"`
	PreviewURI   string         `json:"preview_uri,omitempty"`
	Metadata     *SceneMetadata `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type Chapter struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Index       int       `json:"index"`
	StartMs     int64     `json:"start_ms"`
	EndMs       int64     `json:"end_ms"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ChapterScene struct {
	ID         string `json:"id"`
	ChapterID  string `json:"chapter_id"`
	SceneID    string `json:"scene_id"`
	OrderIndex int    `json:"order_index"`
}

// StepDetails is the per-stage checkpoint written after each pipeline stage.
// One optional summary per stage keeps the structure statically verifiable.
type StepDetails struct {
	Transcription  *TranscriptionSummary `json:"transcription,omitempty"`
	SceneDetection *SegmentationSummary  `json:"scene_detection,omitempty"`
	Chapters       *ChapterSummary       `json:"chapters,omitempty"`
	Voiceover      *VoiceoverSummary     `json:"voiceover,omitempty"`
	Assembly       *AssemblySummary      `json:"assembly,omitempty"`
}

type TranscriptionSummary struct {
	TranscriptsCreated int      `json:"transcripts_created"`
	MediaAssets        []string `json:"media_assets"`
}

type SegmentationSummary struct {
	ScenesCreated   int `json:"scenes_created"`
	CaptionsCreated int `json:"captions_created"`
}

type ChapterSummary struct {
	ChaptersCreated int `json:"chapters_created"`
}

type VoiceoverSummary struct {
	ArtifactID    string  `json:"artifact_id"`
	WavPath       string  `json:"wav_path"`
	OffsetSeconds float64 `json:"offset_seconds"`
	VoiceoverGain float64 `json:"voiceover_gain"`
	BedGain       float64 `json:"bed_gain"`
}

type AssemblySummary struct {
	ArtifactID   string `json:"artifact_id"`
	ArtifactPath string `json:"artifact_path"`
	SceneCount   int    `json:"scene_count"`
}

// Run is one pipeline execution attempt for a project.
type Run struct {
	ID           string       `json:"id"`
	ProjectID    string       `json:"project_id"`
	State        string       `json:"state"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	StepDetails  *StepDetails `json:"step_details,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type ArtifactMetadata struct {
	Kind             string  `json:"kind,omitempty"`
	Generator        string  `json:"generator,omitempty"`
	GeneratedAt      string  `json:"generated_at,omitempty"`
	SceneCount       int     `json:"scene_count,omitempty"`
	ItemCount        int     `json:"item_count,omitempty"`
	VoiceoverApplied bool    `json:"voiceover_applied,omitempty"`
	OriginalPath     string  `json:"original_path,omitempty"`
	WavPath          string  `json:"wav_path,omitempty"`
	OffsetSeconds    float64 `json:"offset_seconds,omitempty"`
	VoiceoverGain    float64 `json:"voiceover_gain,omitempty"`
	BedGain          float64 `json:"bed_gain,omitempty"`
}

// Artifact is one produced output of a run. At most one live artifact exists
// per (run, type); producers delete prior rows of their type before inserting.
type Artifact struct {
	ID         string            `json:"id"`
	RunID      string            `json:"run_id"`
	Type       string            `json:"type"`
	StorageKey string            `json:"storage_key"`
	Metadata   *ArtifactMetadata `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func NewID() string {
	return uuid.NewString()
}
