package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// formFile builds a parsed multipart file the way gin hands it to us.
func formFile(t *testing.T, fieldName, fileName string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	file, header, err := req.FormFile(fieldName)
	require.NoError(t, err)
	return file, header
}

func TestSavePersistsUpload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	receiver, err := NewReceiver(dir, nil)
	require.NoError(t, err)

	file, header := formFile(t, "audio", "sample.wav", []byte("RIFF-data"))
	defer file.Close()

	audio, err := receiver.Save(file, header)
	require.NoError(t, err)
	require.Equal(t, "sample.wav", audio.OriginalName)
	require.Equal(t, dir, filepath.Dir(audio.Path))
	require.Contains(t, filepath.Base(audio.Path), "sample.wav")

	content, err := os.ReadFile(audio.Path)
	require.NoError(t, err)
	require.Equal(t, []byte("RIFF-data"), content)
}

func TestSaveConcurrentIdenticalNamesDoNotCollide(t *testing.T) {
	t.Parallel()

	receiver, err := NewReceiver(t.TempDir(), nil)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		file, header := formFile(t, "audio", "sample.wav", []byte("x"))
		audio, err := receiver.Save(file, header)
		file.Close()
		require.NoError(t, err)
		require.False(t, seen[audio.Path], "path %s reused", audio.Path)
		seen[audio.Path] = true
	}
}

func TestSaveSanitizesHostileFilenames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	receiver, err := NewReceiver(dir, nil)
	require.NoError(t, err)

	file, header := formFile(t, "audio", "../../etc/pass wd.wav", []byte("x"))
	defer file.Close()

	audio, err := receiver.Save(file, header)
	require.NoError(t, err)
	require.Equal(t, dir, filepath.Dir(audio.Path))
	require.NotContains(t, filepath.Base(audio.Path), "/")
	require.NotContains(t, filepath.Base(audio.Path), " ")
}

func TestDiscardRemovesUploadAndDerivedFiles(t *testing.T) {
	t.Parallel()

	receiver, err := NewReceiver(t.TempDir(), nil)
	require.NoError(t, err)

	file, header := formFile(t, "audio", "sample.wav", []byte("x"))
	defer file.Close()

	audio, err := receiver.Save(file, header)
	require.NoError(t, err)

	derived := audio.Path + ".json"
	require.NoError(t, os.WriteFile(derived, []byte("{}"), 0o644))

	receiver.Discard(audio, derived)

	_, err = os.Stat(audio.Path)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(derived)
	require.True(t, os.IsNotExist(err))

	// Discarding again must be a quiet no-op.
	receiver.Discard(audio, derived)
}

func TestNewReceiverRequiresDir(t *testing.T) {
	t.Parallel()

	_, err := NewReceiver("", nil)
	require.Error(t, err)
}
