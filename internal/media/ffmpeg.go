// Package media wraps the ffmpeg and ffprobe command line tools behind a
// small interface so the pipeline can be tested without rendering video.
package media

import (
	"context"
	"fmt"
	"log/slog"
)

type FFmpeg interface {
	// Probe returns stream information for a media file.
	Probe(ctx context.Context, filePath string) (*ProbeResult, error)

	// ExtractFrame writes a single frame at timestampMs as an image file.
	ExtractFrame(ctx context.Context, filePath, outputPath string, timestampMs int64) error

	// TrimSegment re-encodes the [startMs, endMs) range of a file into a
	// standalone clip.
	TrimSegment(ctx context.Context, filePath, outputPath string, startMs, endMs int64) error

	// Concatenate joins the clips listed in listPath without re-encoding.
	Concatenate(ctx context.Context, listPath, outputPath string) error

	// ConvertToWAV normalises an audio file to 48 kHz stereo PCM WAV.
	ConvertToWAV(ctx context.Context, filePath, outputPath string) error

	// MixNarration overlays a voiceover WAV on a video's audio track,
	// delaying it by offsetSeconds and ducking the original bed.
	MixNarration(ctx context.Context, videoPath, voiceoverPath, outputPath string, offsetSeconds, voiceoverGain, bedGain float64) error
}

type ProbeResult struct {
	Duration    float64
	Width       int
	Height      int
	Codec       string
	Bitrate     int64
	AudioCodec  string
	AudioSample int
}

// ToolError reports a failed ffmpeg/ffprobe invocation with the tail of its
// captured output.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited %d: %s", e.Tool, e.ExitCode, e.Output)
}

// StubFFmpeg logs each requested operation and succeeds without touching
// ffmpeg. Useful for development on machines without the tools installed.
type StubFFmpeg struct {
	logger *slog.Logger
}

func NewStubFFmpeg(logger *slog.Logger) *StubFFmpeg {
	return &StubFFmpeg{logger: logger}
}

func (f *StubFFmpeg) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	f.logger.Info("ffmpeg stub: probe requested", "path", filePath)
	return &ProbeResult{}, nil
}

func (f *StubFFmpeg) ExtractFrame(ctx context.Context, filePath, outputPath string, timestampMs int64) error {
	f.logger.Info("ffmpeg stub: frame extraction requested",
		"input", filePath, "output", outputPath, "timestamp_ms", timestampMs)
	return nil
}

func (f *StubFFmpeg) TrimSegment(ctx context.Context, filePath, outputPath string, startMs, endMs int64) error {
	f.logger.Info("ffmpeg stub: trim requested",
		"input", filePath, "output", outputPath, "start_ms", startMs, "end_ms", endMs)
	return nil
}

func (f *StubFFmpeg) Concatenate(ctx context.Context, listPath, outputPath string) error {
	f.logger.Info("ffmpeg stub: concat requested", "list", listPath, "output", outputPath)
	return nil
}

func (f *StubFFmpeg) ConvertToWAV(ctx context.Context, filePath, outputPath string) error {
	f.logger.Info("ffmpeg stub: wav conversion requested", "input", filePath, "output", outputPath)
	return nil
}

func (f *StubFFmpeg) MixNarration(ctx context.Context, videoPath, voiceoverPath, outputPath string, offsetSeconds, voiceoverGain, bedGain float64) error {
	f.logger.Info("ffmpeg stub: narration mix requested",
		"video", videoPath, "voiceover", voiceoverPath, "output", outputPath,
		"offset_s", offsetSeconds, "voiceover_gain", voiceoverGain, "bed_gain", bedGain)
	return nil
}
