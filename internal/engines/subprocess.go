package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics
)

// Config holds the subprocess engines' configuration.
type Config struct {
	PythonPath        string        // path to python binary; empty = auto-detect
	ModuleName        string        // default "genesis_media_pipelines"
	WorkDir           string        // scratch dir for --out files
	TranscribeTimeout time.Duration // timeout for the transcribe command
	DetectTimeout     time.Duration // timeout for the scenes command
	CaptionTimeout    time.Duration // timeout for a single caption command
	Logger            *slog.Logger
	DebugPaths        bool // if true, log full file paths; otherwise sanitise
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig(dataDir string, logger *slog.Logger) Config {
	return Config{
		PythonPath:        "", // auto-detect
		ModuleName:        "genesis_media_pipelines",
		WorkDir:           filepath.Join(dataDir, "engine-out"),
		TranscribeTimeout: 30 * time.Minute,
		DetectTimeout:     10 * time.Minute,
		CaptionTimeout:    2 * time.Minute,
		Logger:            logger,
		DebugPaths:        false,
	}
}

// SubprocessEngines executes the Python pipeline CLI as subprocesses. It is
// the production implementation of Transcriber, BoundaryDetector and
// Captioner.
type SubprocessEngines struct {
	cfg    Config
	python string // resolved python path
}

// New creates SubprocessEngines, resolving the Python binary path.
func New(cfg Config) (*SubprocessEngines, error) {
	python, err := resolvePython(cfg.PythonPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate python: %w", err)
	}

	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create engine work dir: %w", err)
	}

	cfg.Logger.Info("engines initialised",
		"python", python,
		"module", cfg.ModuleName,
		"work_dir", cfg.WorkDir,
	)

	return &SubprocessEngines{cfg: cfg, python: python}, nil
}

// Transcribe runs the transcribe command and parses its output file.
func (e *SubprocessEngines) Transcribe(ctx context.Context, mediaPath string) (*TranscribeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TranscribeTimeout)
	defer cancel()

	outPath := e.outPath("transcribe")
	defer os.Remove(outPath)

	result := e.exec(ctx, outPath,
		"transcribe",
		"--media", mediaPath,
		"--out", outPath,
	)
	if !result.IsSuccess() {
		return nil, &EngineError{Command: "transcribe", ExitCode: result.ExitCode, StderrTail: result.StderrTail}
	}

	var payload struct {
		OutputStamp
		TranscribeResult
	}
	if err := readJSON(outPath, &payload); err != nil {
		return nil, fmt.Errorf("cannot parse transcribe output: %w", err)
	}
	res := payload.TranscribeResult
	res.Raw = &payload.OutputStamp
	return &res, nil
}

// DetectBoundaries runs the scenes command and parses its output file.
func (e *SubprocessEngines) DetectBoundaries(ctx context.Context, mediaPath string) (*BoundaryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.DetectTimeout)
	defer cancel()

	outPath := e.outPath("scenes")
	defer os.Remove(outPath)

	result := e.exec(ctx, outPath,
		"scenes",
		"--media", mediaPath,
		"--out", outPath,
	)
	if !result.IsSuccess() {
		return nil, &EngineError{Command: "scenes", ExitCode: result.ExitCode, StderrTail: result.StderrTail}
	}

	var payload struct {
		OutputStamp
		BoundaryResult
	}
	if err := readJSON(outPath, &payload); err != nil {
		return nil, fmt.Errorf("cannot parse scenes output: %w", err)
	}
	res := payload.BoundaryResult
	res.Raw = &payload.OutputStamp
	return &res, nil
}

// Caption runs the caption command on one frame image and parses its output
// file.
func (e *SubprocessEngines) Caption(ctx context.Context, imagePath string) (*CaptionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CaptionTimeout)
	defer cancel()

	outPath := e.outPath("caption")
	defer os.Remove(outPath)

	result := e.exec(ctx, outPath,
		"caption",
		"--image", imagePath,
		"--out", outPath,
	)
	if !result.IsSuccess() {
		return nil, &EngineError{Command: "caption", ExitCode: result.ExitCode, StderrTail: result.StderrTail}
	}

	var payload struct {
		OutputStamp
		CaptionResult
	}
	if err := readJSON(outPath, &payload); err != nil {
		return nil, fmt.Errorf("cannot parse caption output: %w", err)
	}
	res := payload.CaptionResult
	res.Raw = &payload.OutputStamp
	return &res, nil
}

func (e *SubprocessEngines) outPath(command string) string {
	return filepath.Join(e.cfg.WorkDir, fmt.Sprintf(".%s-%s.json", command, uuid.NewString()))
}

// exec is the core subprocess execution helper.
func (e *SubprocessEngines) exec(ctx context.Context, outPath string, args ...string) RunResult {
	start := time.Now()

	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			e.cfg.Logger.Error("cannot create output dir", "error", err)
			return RunResult{ExitCode: -1, StderrTail: err.Error(), Duration: time.Since(start)}
		}
	}

	cmdArgs := append([]string{"-m", e.cfg.ModuleName}, args...)
	cmd := exec.CommandContext(ctx, e.python, cmdArgs...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})
	cmd.Stdout = io.Discard // CLI writes to --out file, not stdout

	e.cfg.Logger.Info("executing engine command", "command", args[0])

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	stderrTail := stderrBuf.String()

	if exitCode != 0 {
		e.cfg.Logger.Warn("engine command failed",
			"command", args[0],
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrTail, 512),
		)
	} else {
		e.cfg.Logger.Info("engine command succeeded",
			"command", args[0],
			"duration_ms", elapsed.Milliseconds(),
			"output", e.safePath(outPath),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		OutputPath: outPath,
		StderrTail: stderrTail,
		Duration:   elapsed,
	}
}

func (e *SubprocessEngines) safePath(path string) string {
	if e.cfg.DebugPaths {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Base(path)
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return filepath.Base(path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read output file: %w", err)
	}
	return json.Unmarshal(data, v)
}

// resolvePython finds a usable python binary.
func resolvePython(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured python %q not found", preferred)
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no python binary found on PATH (tried python3, python)")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
