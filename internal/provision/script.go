package provision

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/galanggg/inbound-whisper/internal/apperr"
	"github.com/galanggg/inbound-whisper/internal/proc"
	"github.com/galanggg/inbound-whisper/internal/whisper"
)

// Script provisions models by running an external download script with
// the model identifier as its only argument. The script runs with the
// models directory as its working directory and is expected to leave
// the model file there.
type Script struct {
	Path    string
	Dir     string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewScript builds a script provisioner. A zero timeout lets the
// script run unbounded.
func NewScript(path, dir string, timeout time.Duration, logger *zap.Logger) *Script {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Script{Path: path, Dir: dir, Timeout: timeout, Logger: logger}
}

func (s *Script) Provision(ctx context.Context, model whisper.Model, dest string) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	s.Logger.Info("running model download script",
		zap.String("script", s.Path),
		zap.String("model", model.Name),
		zap.String("dest", dest),
	)

	started := time.Now()
	result, err := proc.Run(ctx, proc.Command{
		Binary: s.Path,
		Args:   []string{model.Name},
		Dir:    s.Dir,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return apperr.New(apperr.Timeout, "provisioning model %q exceeded %s", model.Name, s.Timeout).
				WithDetails(scriptOutput(result)).
				WithCause(err)
		}
		return apperr.New(apperr.ProvisioningFailed, "download script failed for model %q", model.Name).
			WithDetails(scriptOutput(result)).
			WithCause(err)
	}

	s.Logger.Info("model download script finished",
		zap.String("model", model.Name),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func scriptOutput(result *proc.Result) string {
	if result == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if out := strings.TrimSpace(string(result.Stdout)); out != "" {
		parts = append(parts, "stdout: "+out)
	}
	if errOut := strings.TrimSpace(string(result.Stderr)); errOut != "" {
		parts = append(parts, "stderr: "+errOut)
	}
	return strings.Join(parts, "\n")
}
