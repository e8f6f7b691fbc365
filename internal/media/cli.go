package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

const maxToolOutputBytes = 8 * 1024

// CLIFFmpeg shells out to the ffmpeg and ffprobe binaries.
type CLIFFmpeg struct {
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
}

func NewCLIFFmpeg(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *CLIFFmpeg {
	return &CLIFFmpeg{ffmpeg: ffmpegBinary, ffprobe: ffprobeBinary, logger: logger}
}

func (f *CLIFFmpeg) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration,bit_rate",
		"-show_entries", "stream=codec_type,codec_name,width,height,sample_rate",
		"-of", "json",
		filePath,
	}
	out, err := f.run(ctx, f.ffprobe, args)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
			BitRate  string `json:"bit_rate"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			Width      int    `json:"width"`
			Height     int    `json:"height"`
			SampleRate string `json:"sample_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe output: %w", err)
	}

	result := &ProbeResult{}
	result.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	result.Bitrate, _ = strconv.ParseInt(probe.Format.BitRate, 10, 64)
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			result.Codec = s.CodecName
			result.Width = s.Width
			result.Height = s.Height
		case "audio":
			result.AudioCodec = s.CodecName
			result.AudioSample, _ = strconv.Atoi(s.SampleRate)
		}
	}
	return result, nil
}

func (f *CLIFFmpeg) ExtractFrame(ctx context.Context, filePath, outputPath string, timestampMs int64) error {
	args := []string{
		"-y",
		"-ss", msToSeconds(timestampMs),
		"-i", filePath,
		"-frames:v", "1",
		"-q:v", "2",
		outputPath,
	}
	_, err := f.run(ctx, f.ffmpeg, args)
	return err
}

func (f *CLIFFmpeg) TrimSegment(ctx context.Context, filePath, outputPath string, startMs, endMs int64) error {
	args := []string{
		"-y",
		"-i", filePath,
		"-ss", msToSeconds(startMs),
		"-to", msToSeconds(endMs),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "192k",
		outputPath,
	}
	_, err := f.run(ctx, f.ffmpeg, args)
	return err
}

func (f *CLIFFmpeg) Concatenate(ctx context.Context, listPath, outputPath string) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}
	_, err := f.run(ctx, f.ffmpeg, args)
	return err
}

func (f *CLIFFmpeg) ConvertToWAV(ctx context.Context, filePath, outputPath string) error {
	args := []string{
		"-y",
		"-i", filePath,
		"-ar", "48000",
		"-ac", "2",
		outputPath,
	}
	_, err := f.run(ctx, f.ffmpeg, args)
	return err
}

func (f *CLIFFmpeg) MixNarration(ctx context.Context, videoPath, voiceoverPath, outputPath string, offsetSeconds, voiceoverGain, bedGain float64) error {
	delayMs := int64(offsetSeconds * 1000)
	if delayMs < 0 {
		delayMs = 0
	}
	filter := fmt.Sprintf(
		"[0:a]volume=%s[bg];[1:a]adelay=%d|%d,volume=%s[vo];[bg][vo]amix=inputs=2:duration=first:dropout_transition=2[aout]",
		formatGain(bedGain), delayMs, delayMs, formatGain(voiceoverGain),
	)
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", voiceoverPath,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		outputPath,
	}
	_, err := f.run(ctx, f.ffmpeg, args)
	return err
}

// run executes a tool and returns its stdout. All tool output is bounded so
// a chatty encode cannot blow up memory or logs.
func (f *CLIFFmpeg) run(ctx context.Context, tool string, args []string) ([]byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, tool, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		tail := tailString(stderr.String(), maxToolOutputBytes)
		f.logger.Warn("media tool failed",
			"tool", filepath.Base(tool),
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
		)
		return nil, &ToolError{
			Tool:     filepath.Base(tool),
			Args:     args,
			ExitCode: exitCode,
			Output:   tail,
		}
	}

	f.logger.Debug("media tool succeeded",
		"tool", filepath.Base(tool),
		"duration_ms", elapsed.Milliseconds(),
	)
	return stdout.Bytes(), nil
}

// WriteConcatList writes an ffmpeg concat demuxer list file for the given
// clip paths.
func WriteConcatList(listPath string, clipPaths []string) error {
	var buf bytes.Buffer
	for _, p := range clipPaths {
		fmt.Fprintf(&buf, "file '%s'\n", p)
	}
	return os.WriteFile(listPath, buf.Bytes(), 0644)
}

func msToSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000.0, 'f', 3, 64)
}

func formatGain(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}

func tailString(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
