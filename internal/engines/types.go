// Package engines provides subprocess-based execution of the
// genesis-media-pipelines Python CLI commands (transcribe, scenes, caption)
// with structured result parsing.
package engines

import (
	"context"
	"fmt"
	"time"
)

// Transcriber produces a speech transcript for one media file.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (*TranscribeResult, error)
}

// BoundaryDetector splits one media file into an ordered list of scene
// ranges. An empty list is a valid "no cuts found" result.
type BoundaryDetector interface {
	DetectBoundaries(ctx context.Context, mediaPath string) (*BoundaryResult, error)
}

// Captioner describes one extracted frame image in a sentence.
type Captioner interface {
	Caption(ctx context.Context, imagePath string) (*CaptionResult, error)
}

// TranscribeResult is the parsed output of the transcribe command.
type TranscribeResult struct {
	Text     string       `json:"text"`
	Language string       `json:"language,omitempty"`
	Segments []Segment    `json:"segments"`
	Info     BackendInfo  `json:"info"`
	Warnings []string     `json:"warnings,omitempty"`
	Raw      *OutputStamp `json:"-"`
}

// Segment is one time-coded span of recognised speech, times in seconds.
type Segment struct {
	ID               int     `json:"id"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	AvgLogProb       float64 `json:"avg_logprob"`
	Temperature      float64 `json:"temperature"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// BackendInfo captures what the recognition backend reported about the file.
type BackendInfo struct {
	Duration            float64 `json:"duration"`
	Language            string  `json:"language,omitempty"`
	LanguageProbability float64 `json:"language_probability,omitempty"`
}

// SceneRange is one detected scene with the detector's own timecodes. Ranges
// are reported in detected order and need not be contiguous.
type SceneRange struct {
	StartMs       int64  `json:"start_ms"`
	EndMs         int64  `json:"end_ms"`
	StartTimecode string `json:"start_timecode,omitempty"`
	EndTimecode   string `json:"end_timecode,omitempty"`
}

// BoundaryResult is the parsed output of the scenes command.
type BoundaryResult struct {
	Scenes          []SceneRange `json:"scenes"`
	TotalDurationMs int64        `json:"total_duration_ms"`
	Raw             *OutputStamp `json:"-"`
}

// CaptionResult is the parsed output of the caption command.
type CaptionResult struct {
	Caption string       `json:"caption"`
	Raw     *OutputStamp `json:"-"`
}

// OutputStamp carries the versioning fields every engine output file includes.
type OutputStamp struct {
	SchemaVersion   string `json:"schema_version"`
	PipelineVersion string `json:"pipeline_version"`
	ModelVersion    string `json:"model_version"`
}

// RunResult is the structured outcome of executing an engine subprocess.
type RunResult struct {
	ExitCode   int           `json:"exit_code"`
	OutputPath string        `json:"output_path,omitempty"`
	StderrTail string        `json:"stderr_tail,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// EngineError reports a failed engine invocation with enough context to
// diagnose it from logs alone.
type EngineError struct {
	Command    string
	ExitCode   int
	StderrTail string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine command %q exited %d: %s", e.Command, e.ExitCode, e.StderrTail)
}
