package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/galanggg/inbound-whisper/internal/apperr"
	"github.com/galanggg/inbound-whisper/internal/proc"
)

// CLIEngine runs the whisper.cpp command-line binary. The binary writes
// a JSON transcript next to the audio file; callers own cleanup of both.
type CLIEngine struct {
	Executable string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewCLIEngine resolves executable (via PATH when it carries no
// separator) and verifies it is runnable. A zero timeout means the
// engine runs unbounded.
func NewCLIEngine(executable string, timeout time.Duration, logger *zap.Logger) (*CLIEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	executable = strings.TrimSpace(executable)
	if executable == "" {
		return nil, errors.New("engine executable is required")
	}

	if !strings.ContainsRune(executable, os.PathSeparator) {
		resolved, err := exec.LookPath(executable)
		if err != nil {
			return nil, fmt.Errorf("engine %q not found in PATH: %w", executable, err)
		}
		executable = resolved
	} else if err := ensureExecutable(executable); err != nil {
		return nil, fmt.Errorf("engine not executable: %w", err)
	}

	return &CLIEngine{Executable: executable, Timeout: timeout, Logger: logger}, nil
}

// engineOutput mirrors the whisper.cpp --output-json file layout.
type engineOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

func (e *CLIEngine) Transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return "", errors.New("audio path is required")
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return "", errors.New("model path is required")
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	// -of takes the output base name; whisper.cpp appends ".json".
	outJSON := OutputPath(req.AudioPath)
	args := []string{"-m", req.ModelPath, "-f", req.AudioPath, "-oj", "-of", req.AudioPath}
	lang := strings.TrimSpace(req.Language)
	if lang != "" && lang != "auto" {
		args = append(args, "-l", lang)
	}

	e.Logger.Debug("running whisper engine",
		zap.String("engine", e.Executable),
		zap.Strings("args", args),
	)

	result, err := proc.Run(ctx, proc.Command{Binary: e.Executable, Args: args})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperr.New(apperr.Timeout, "transcription exceeded %s", e.Timeout).
				WithDetails(diagnostic(result)).
				WithCause(err)
		}
		return "", apperr.New(apperr.EngineFailed, "transcription engine failed").
			WithDetails(diagnostic(result)).
			WithCause(err)
	}

	raw, readErr := os.ReadFile(outJSON)
	if readErr != nil {
		if errors.Is(readErr, os.ErrNotExist) {
			return "", apperr.New(apperr.OutputMissing, "engine reported success but produced no output file").
				WithDetails(diagnostic(result)).
				WithCause(readErr)
		}
		return "", apperr.New(apperr.OutputMissing, "engine output file unreadable").
			WithDetails(diagnostic(result)).
			WithCause(readErr)
	}

	var parsed engineOutput
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperr.New(apperr.OutputMalformed, "engine output is not valid JSON").
			WithDetails(clip(string(raw), proc.DefaultMaxCapture)).
			WithCause(err)
	}

	var sb strings.Builder
	for _, segment := range parsed.Transcription {
		sb.WriteString(segment.Text)
	}

	return strings.TrimSpace(sb.String()), nil
}

func diagnostic(result *proc.Result) string {
	if result == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if out := strings.TrimSpace(string(result.Stdout)); out != "" {
		parts = append(parts, out)
	}
	if errOut := strings.TrimSpace(string(result.Stderr)); errOut != "" {
		parts = append(parts, errOut)
	}
	return strings.Join(parts, "\n")
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (output truncated)"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
