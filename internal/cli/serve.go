package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/galanggg/inbound-whisper/internal/provision"
	"github.com/galanggg/inbound-whisper/internal/server"
	"github.com/galanggg/inbound-whisper/internal/store"
	"github.com/galanggg/inbound-whisper/internal/upload"
	"github.com/galanggg/inbound-whisper/internal/whisper"
)

func newServeCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the transcription HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}
}

func (a *appState) runServe(ctx context.Context) error {
	cfg := a.cfg
	logger := a.log()

	engine, err := whisper.NewCLIEngine(cfg.EnginePath, cfg.TranscribeTimeout, logger)
	if err != nil {
		return err
	}

	receiver, err := upload.NewReceiver(cfg.UploadDir, logger)
	if err != nil {
		return err
	}

	st := store.New(cfg.ModelsDir, a.provisioner(false), logger)
	handler := server.NewHandler(st, engine, receiver, cfg.MaxJobs, cfg.DefaultModel, logger)
	srv := server.New(cfg, handler, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	logger.Info("ready",
		zap.String("addr", srv.Addr()),
		zap.String("models_dir", cfg.ModelsDir),
		zap.String("upload_dir", cfg.UploadDir),
		zap.String("default_model", cfg.DefaultModel),
	)

	<-ctx.Done()
	stop()

	return srv.Stop(context.Background())
}

// provisioner picks the download script when configured, else the
// direct HTTP downloader. Progress output only makes sense for the
// interactive fetch command.
func (a *appState) provisioner(showProgress bool) provision.Provisioner {
	if a.cfg.DownloadScript != "" {
		return provision.NewScript(a.cfg.DownloadScript, a.cfg.ModelsDir, a.cfg.ProvisionTimeout, a.log())
	}
	return provision.NewHTTP(a.cfg.ProvisionTimeout, showProgress, a.log())
}
