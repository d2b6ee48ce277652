package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "inbound-whisper v")
}

func TestFetchCommandRunsDownloadScript(t *testing.T) {
	t.Chdir(t.TempDir())

	modelsDir := t.TempDir()
	script := filepath.Join(t.TempDir(), "download-model.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ntouch \"ggml-$1.bin\"\n"), 0o755))

	t.Setenv("INBOUND_WHISPER_MODELS_DIR", modelsDir)
	t.Setenv("INBOUND_WHISPER_UPLOAD_DIR", t.TempDir())
	t.Setenv("INBOUND_WHISPER_DOWNLOAD_SCRIPT", script)

	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"fetch", "--model", "tiny"})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "Model tiny available at")

	_, err := os.Stat(filepath.Join(modelsDir, "ggml-tiny.bin"))
	require.NoError(t, err)
}

func TestFetchCommandSurfacesScriptFailure(t *testing.T) {
	t.Chdir(t.TempDir())

	script := filepath.Join(t.TempDir(), "download-model.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 1\n"), 0o755))

	t.Setenv("INBOUND_WHISPER_MODELS_DIR", t.TempDir())
	t.Setenv("INBOUND_WHISPER_UPLOAD_DIR", t.TempDir())
	t.Setenv("INBOUND_WHISPER_DOWNLOAD_SCRIPT", script)

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"fetch", "--model", "tiny"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "tiny")
}
