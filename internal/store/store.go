// Package store guarantees model files exist locally before use.
package store

import (
	"context"
	"errors"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/galanggg/inbound-whisper/internal/apperr"
	"github.com/galanggg/inbound-whisper/internal/provision"
	"github.com/galanggg/inbound-whisper/internal/whisper"
)

// Store maps model identifiers to files inside a shared models
// directory, provisioning them on demand. The filesystem is the source
// of truth: existence is re-checked on every call rather than cached,
// since the directory may be populated or cleared externally.
type Store struct {
	dir    string
	prov   provision.Provisioner
	logger *zap.Logger

	// group collapses concurrent provisioning of one identifier into a
	// single in-flight run; latecomers wait for its result.
	group singleflight.Group
}

// New builds a Store over dir backed by prov.
func New(dir string, prov provision.Provisioner, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, prov: prov, logger: logger}
}

// Dir returns the models directory.
func (s *Store) Dir() string { return s.dir }

// Validate checks name against the fixed valid-model set without any
// I/O, so handlers can reject bad input before touching the disk.
func (s *Store) Validate(name string) error {
	if _, ok := whisper.LookupModel(name); !ok {
		return apperr.New(apperr.InvalidParameter,
			"unknown model %q (valid models: %s)", name, strings.Join(whisper.ModelNames(), ", "))
	}
	return nil
}

// Ensure returns the on-disk path for the named model, provisioning it
// first when absent. Unknown names fail before any I/O. The returned
// path is confirmed to exist at the moment of return.
func (s *Store) Ensure(ctx context.Context, name string) (string, error) {
	if err := s.Validate(name); err != nil {
		return "", err
	}
	model, _ := whisper.LookupModel(name)

	path := model.PathIn(s.dir)
	present, err := fileExists(path)
	if err != nil {
		return "", apperr.New(apperr.ProvisioningFailed, "cannot stat model path %s", path).WithCause(err)
	}
	if present {
		return path, nil
	}

	// The flight runs under the first caller's context. Latecomers
	// stop waiting when their own context ends; the shared run keeps
	// going for whoever remains.
	ch := s.group.DoChan(model.Name, func() (any, error) {
		// A concurrent caller may have finished provisioning between
		// the fast-path check and joining the flight.
		if present, err := fileExists(path); err != nil {
			return nil, apperr.New(apperr.ProvisioningFailed, "cannot stat model path %s", path).WithCause(err)
		} else if present {
			return nil, nil
		}

		s.logger.Info("model not present, provisioning",
			zap.String("model", model.Name),
			zap.String("path", path),
		)

		if err := s.prov.Provision(ctx, model, path); err != nil {
			return nil, err
		}

		// Exit status alone is not trusted: the provisioner may report
		// success without producing the file.
		present, statErr := fileExists(path)
		if statErr != nil {
			return nil, apperr.New(apperr.ProvisioningFailed, "cannot stat model path %s", path).WithCause(statErr)
		}
		if !present {
			return nil, apperr.New(apperr.ProvisioningFailed,
				"provisioning reported success but model %q is still missing at %s", model.Name, path)
		}

		s.logger.Info("model provisioned", zap.String("model", model.Name), zap.String("path", path))
		return nil, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperr.New(apperr.Timeout, "timed out waiting for model %q to be provisioned", model.Name).
				WithCause(ctx.Err())
		}
		return "", apperr.New(apperr.ProvisioningFailed, "gave up waiting for model %q", model.Name).
			WithCause(ctx.Err())
	}

	return path, nil
}

// Installed lists the model names currently present in the directory.
func (s *Store) Installed() ([]string, error) {
	return whisper.InstalledModels(s.dir)
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}
