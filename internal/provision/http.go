package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/galanggg/inbound-whisper/internal/apperr"
	"github.com/galanggg/inbound-whisper/internal/whisper"
)

// HTTP provisions models by downloading them directly from the model
// registry URL. Used when no external download script is configured,
// and by the fetch command.
type HTTP struct {
	Client       *http.Client
	Retries      int
	Timeout      time.Duration
	ShowProgress bool
	Logger       *zap.Logger
}

// NewHTTP builds an HTTP provisioner. The timeout covers the whole
// provisioning run including retries; zero means unbounded.
func NewHTTP(timeout time.Duration, showProgress bool, logger *zap.Logger) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTP{
		Client:       &http.Client{},
		Retries:      3,
		Timeout:      timeout,
		ShowProgress: showProgress,
		Logger:       logger,
	}
}

func (p *HTTP) Provision(ctx context.Context, model whisper.Model, dest string) error {
	if model.URL == "" {
		return apperr.New(apperr.ProvisioningFailed, "model %q has no download URL", model.Name)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	retries := p.Retries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 {
			p.Logger.Warn("retrying model download",
				zap.Int("attempt", attempt),
				zap.Int("max", retries),
				zap.String("model", model.Name),
			)
			select {
			case <-ctx.Done():
				return p.wrap(ctx, model, lastErr)
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
		}

		lastErr = p.downloadOnce(ctx, model, dest)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}

	return p.wrap(ctx, model, lastErr)
}

func (p *HTTP) wrap(ctx context.Context, model whisper.Model, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.New(apperr.Timeout, "downloading model %q timed out", model.Name).WithCause(err)
	}
	return apperr.New(apperr.ProvisioningFailed, "download failed for model %q", model.Name).
		WithDetails(fmt.Sprintf("%v", err)).
		WithCause(err)
}

func (p *HTTP) downloadOnce(ctx context.Context, model whisper.Model, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	tempPath := dest + ".part"
	_ = os.Remove(tempPath)

	outFile, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		_ = outFile.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, model.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "inbound-whisper/1")

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	hash := sha256.New()
	writer := io.MultiWriter(outFile, hash)

	var bar *progressbar.ProgressBar
	if p.renderProgress(resp.ContentLength) {
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription("downloading "+model.Name),
			progressbar.OptionSetWidth(20),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
		writer = io.MultiWriter(outFile, hash, bar)
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		return fmt.Errorf("download body: %w", err)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if err := outFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	expected := strings.ToLower(strings.TrimSpace(model.SHA256))
	actual := hex.EncodeToString(hash.Sum(nil))
	if expected != "" && actual != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, dest); err != nil {
		return fmt.Errorf("move temp file into destination: %w", err)
	}

	success = true
	return nil
}

func (p *HTTP) renderProgress(contentLength int64) bool {
	if !p.ShowProgress {
		return false
	}
	if contentLength <= 0 {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
