// Package upload persists incoming audio files into a scratch
// directory under collision-resistant names.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Audio is one persisted upload, owned by the request that created it.
type Audio struct {
	OriginalName string
	Path         string
	CreatedAt    time.Time
}

// Receiver writes uploads into a scratch directory.
type Receiver struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewReceiver creates the scratch directory if needed.
func NewReceiver(dir string, logger *zap.Logger) (*Receiver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Receiver{dir: dir, logger: logger, now: time.Now}, nil
}

// Save stores the uploaded file under a unique name built from the
// ingestion timestamp, a random id, and the sanitized original name,
// so concurrent uploads of identically-named files cannot collide.
func (r *Receiver) Save(src multipart.File, header *multipart.FileHeader) (Audio, error) {
	original := filepath.Base(header.Filename)
	name := fmt.Sprintf("%s-%s-%s",
		r.now().UTC().Format("20060102T150405"),
		uuid.NewString(),
		sanitizeName(original),
	)
	path := filepath.Join(r.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return Audio{}, fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return Audio{}, fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return Audio{}, fmt.Errorf("close upload file: %w", err)
	}

	return Audio{OriginalName: original, Path: path, CreatedAt: r.now()}, nil
}

// Discard removes the uploaded file and any derived files. Failures are
// logged and never surfaced; the response must not depend on cleanup.
func (r *Receiver) Discard(audio Audio, derived ...string) {
	paths := append([]string{audio.Path}, derived...)
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("failed to remove scratch file", zap.String("path", path), zap.Error(err))
		}
	}
}

func sanitizeName(name string) string {
	if name == "" || name == "." || name == string(os.PathSeparator) {
		return "audio"
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
