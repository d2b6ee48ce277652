package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/galanggg/inbound-whisper/internal/store"
	"github.com/galanggg/inbound-whisper/internal/whisper"
)

// newFetchCmd pre-provisions a model so the first transcription request
// does not pay the download cost.
func newFetchCmd(app *appState) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a model into the models directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := model
			if name == "" {
				name = app.cfg.DefaultModel
			}

			st := store.New(app.cfg.ModelsDir, app.provisioner(true), app.log())
			path, err := st.Ensure(cmd.Context(), name)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Model %s available at %s\n", name, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "",
		"Model to fetch, one of: "+strings.Join(whisper.ModelNames(), ", ")+" (default: configured default model)")
	return cmd
}
