package engines

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLimitedWriter_KeepsTail(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 10}

	lw.Write([]byte("0123456789"))
	lw.Write([]byte("abcdef"))

	got := buf.String()
	if len(got) != 10 {
		t.Errorf("buffer length = %d, want 10", len(got))
	}
	if got != "6789abcdef" {
		t.Errorf("buffer = %s, want 6789abcdef", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %s, want short", got)
	}

	long := strings.Repeat("x", 100) + "ending"
	got := truncate(long, 6)
	if !strings.HasPrefix(got, "...") {
		t.Errorf("truncate() = %s, want ... prefix", got)
	}
	if !strings.HasSuffix(got, "ending") {
		t.Errorf("truncate() = %s, want ending suffix", got)
	}
}

func TestTranscribePayloadParsing(t *testing.T) {
	raw := `{
		"schema_version": "1.0",
		"pipeline_version": "0.4.2",
		"model_version": "base",
		"text": "hello world",
		"language": "en",
		"segments": [
			{"id": 0, "start": 0.0, "end": 1.5, "text": "hello", "avg_logprob": -0.2},
			{"id": 1, "start": 1.5, "end": 3.0, "text": "world", "avg_logprob": -0.3}
		],
		"info": {"duration": 3.0, "language": "en", "language_probability": 0.98}
	}`

	var payload struct {
		OutputStamp
		TranscribeResult
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}

	if payload.SchemaVersion != "1.0" {
		t.Errorf("SchemaVersion = %s, want 1.0", payload.SchemaVersion)
	}
	if payload.Text != "hello world" {
		t.Errorf("Text = %s, want 'hello world'", payload.Text)
	}
	if len(payload.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(payload.Segments))
	}
	if payload.Segments[1].End != 3.0 {
		t.Errorf("Segments[1].End = %f, want 3.0", payload.Segments[1].End)
	}
	if payload.Info.Duration != 3.0 {
		t.Errorf("Info.Duration = %f, want 3.0", payload.Info.Duration)
	}
}

func TestBoundaryPayloadParsing(t *testing.T) {
	raw := `{
		"schema_version": "1.0",
		"pipeline_version": "0.4.2",
		"model_version": "content-detector",
		"scenes": [
			{"start_ms": 0, "end_ms": 2000},
			{"start_ms": 2000, "end_ms": 5000, "start_timecode": "00:00:02.000", "end_timecode": "00:00:05.000"},
			{"start_ms": 5000, "end_ms": 9000}
		],
		"total_duration_ms": 9000
	}`

	var payload struct {
		OutputStamp
		BoundaryResult
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}

	if len(payload.Scenes) != 3 {
		t.Fatalf("got %d scenes, want 3", len(payload.Scenes))
	}
	if payload.Scenes[1].StartMs != 2000 || payload.Scenes[1].EndMs != 5000 {
		t.Errorf("Scenes[1] = %+v, want [2000, 5000)", payload.Scenes[1])
	}
	if payload.Scenes[1].StartTimecode != "00:00:02.000" {
		t.Errorf("Scenes[1].StartTimecode = %s, want 00:00:02.000", payload.Scenes[1].StartTimecode)
	}
	if payload.Scenes[0].StartTimecode != "" {
		t.Errorf("Scenes[0].StartTimecode = %s, want empty", payload.Scenes[0].StartTimecode)
	}
	if payload.TotalDurationMs != 9000 {
		t.Errorf("TotalDurationMs = %d, want 9000", payload.TotalDurationMs)
	}
}

func TestEngineError_Message(t *testing.T) {
	err := &EngineError{Command: "transcribe", ExitCode: 3, StderrTail: "model not found"}
	msg := err.Error()
	if !strings.Contains(msg, "transcribe") || !strings.Contains(msg, "model not found") {
		t.Errorf("Error() = %s, want command and stderr tail", msg)
	}
}
