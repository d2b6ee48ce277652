package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/galanggg/inbound-whisper/internal/apperr"
	"github.com/galanggg/inbound-whisper/internal/whisper"
)

func TestHTTPProvisionDownloadsAndVerifies(t *testing.T) {
	t.Parallel()

	payload := []byte("model-weights")
	sum := sha256.Sum256(payload)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	model := whisper.Model{
		Name:     "tiny",
		FileName: "ggml-tiny.bin",
		URL:      server.URL,
		SHA256:   hex.EncodeToString(sum[:]),
	}
	dest := filepath.Join(t.TempDir(), model.FileName)

	prov := NewHTTP(0, false, nil)
	require.NoError(t, prov.Provision(context.Background(), model, dest))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, payload, content)

	// No stray partial file left behind.
	_, err = os.Stat(dest + ".part")
	require.True(t, os.IsNotExist(err))
}

func TestHTTPProvisionChecksumMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("corrupted"))
	}))
	defer server.Close()

	model := whisper.Model{
		Name:     "tiny",
		FileName: "ggml-tiny.bin",
		URL:      server.URL,
		SHA256:   "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}
	dest := filepath.Join(t.TempDir(), model.FileName)

	prov := NewHTTP(0, false, nil)
	prov.Retries = 2

	err := prov.Provision(context.Background(), model, dest)
	require.Error(t, err)
	require.Equal(t, apperr.ProvisioningFailed, apperr.KindOf(err))
	require.Contains(t, apperr.As(err).Details, "checksum mismatch")

	_, err = os.Stat(dest)
	require.True(t, os.IsNotExist(err))
}

func TestHTTPProvisionServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	model := whisper.Model{Name: "tiny", FileName: "ggml-tiny.bin", URL: server.URL}
	prov := NewHTTP(0, false, nil)
	prov.Retries = 1

	err := prov.Provision(context.Background(), model, filepath.Join(t.TempDir(), model.FileName))
	require.Error(t, err)
	require.Equal(t, apperr.ProvisioningFailed, apperr.KindOf(err))
}

func TestHTTPProvisionRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("weights"))
	}))
	defer server.Close()

	model := whisper.Model{Name: "tiny", FileName: "ggml-tiny.bin", URL: server.URL}
	dest := filepath.Join(t.TempDir(), model.FileName)

	prov := NewHTTP(0, false, nil)
	require.NoError(t, prov.Provision(context.Background(), model, dest))
	require.Equal(t, 3, attempts)
}

func TestHTTPProvisionTimeout(t *testing.T) {
	t.Parallel()

	// Stall until the client gives up.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	model := whisper.Model{Name: "tiny", FileName: "ggml-tiny.bin", URL: server.URL}
	prov := NewHTTP(100*time.Millisecond, false, nil)
	prov.Retries = 1

	started := time.Now()
	err := prov.Provision(context.Background(), model, filepath.Join(t.TempDir(), model.FileName))
	require.Error(t, err)
	require.Equal(t, apperr.Timeout, apperr.KindOf(err))
	require.Less(t, time.Since(started), 4*time.Second)
}

func TestHTTPProvisionNoURL(t *testing.T) {
	t.Parallel()

	prov := NewHTTP(0, false, nil)
	err := prov.Provision(context.Background(), whisper.Model{Name: "x"}, filepath.Join(t.TempDir(), "x.bin"))
	require.Error(t, err)
	require.Equal(t, apperr.ProvisioningFailed, apperr.KindOf(err))
}
