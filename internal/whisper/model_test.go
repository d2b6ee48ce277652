package whisper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupModelKnownNames(t *testing.T) {
	t.Parallel()

	model, ok := LookupModel("tiny")
	require.True(t, ok)
	require.Equal(t, "ggml-tiny.bin", model.FileName)

	model, ok = LookupModel(" medium ")
	require.True(t, ok)
	require.Equal(t, "medium", model.Name)

	_, ok = LookupModel("super-huge")
	require.False(t, ok)
}

func TestModelNamesSortedAndComplete(t *testing.T) {
	t.Parallel()

	names := ModelNames()
	require.Contains(t, names, "tiny")
	require.Contains(t, names, "medium")
	require.Contains(t, names, "large-v3")
	require.IsIncreasing(t, names)
}

func TestDefaultModelIsValid(t *testing.T) {
	t.Parallel()

	_, ok := LookupModel(DefaultModel)
	require.True(t, ok)
}

func TestModelPathIn(t *testing.T) {
	t.Parallel()

	model, ok := LookupModel("base")
	require.True(t, ok)
	require.Equal(t, filepath.Join("/models", "ggml-base.bin"), model.PathIn("/models"))
}

func TestInstalledModelsMissingDir(t *testing.T) {
	t.Parallel()

	names, err := InstalledModels(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	require.Empty(t, names)
	require.NotNil(t, names)
}

func TestInstalledModelsFiltersByNamingConvention(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"ggml-tiny.bin", "ggml-medium.en.bin", "notes.txt", "ggml-.bin", "medium.bin"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ggml-fake.bin"), 0o755))

	names, err := InstalledModels(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"medium.en", "tiny"}, names)
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/tmp/a.wav.json", OutputPath("/tmp/a.wav"))
}
