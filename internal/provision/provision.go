// Package provision makes model files present on disk. Two
// implementations exist: an external download script and a direct HTTP
// download. Neither is trusted on its own success report — the model
// store re-checks file existence after every provisioning run.
package provision

import (
	"context"

	"github.com/galanggg/inbound-whisper/internal/whisper"
)

// Provisioner places the file for model at dest, or fails.
type Provisioner interface {
	Provision(ctx context.Context, model whisper.Model, dest string) error
}

// Func adapts a function to the Provisioner interface.
type Func func(ctx context.Context, model whisper.Model, dest string) error

func (f Func) Provision(ctx context.Context, model whisper.Model, dest string) error {
	return f(ctx, model, dest)
}
