package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := map[Kind]int{
		MissingInput:       http.StatusBadRequest,
		InvalidParameter:   http.StatusBadRequest,
		ProvisioningFailed: http.StatusInternalServerError,
		EngineFailed:       http.StatusInternalServerError,
		OutputMissing:      http.StatusInternalServerError,
		OutputMalformed:    http.StatusInternalServerError,
		Internal:           http.StatusInternalServerError,
		Timeout:            http.StatusGatewayTimeout,
		Busy:               http.StatusTooManyRequests,
	}

	for kind, want := range cases {
		require.Equal(t, want, New(kind, "x").HTTPStatus(), "kind %s", kind)
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("root cause")
	err := New(EngineFailed, "engine blew up").WithCause(cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "engine blew up")
	require.Contains(t, err.Error(), "root cause")
}

func TestAsExtractsThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := New(InvalidParameter, "bad model").WithDetails("got super-huge")
	wrapped := fmt.Errorf("ensure model: %w", inner)

	extracted := As(wrapped)
	require.Equal(t, InvalidParameter, extracted.Kind)
	require.Equal(t, "got super-huge", extracted.Details)
	require.Equal(t, InvalidParameter, KindOf(wrapped))
}

func TestAsWrapsUnknownErrorsAsInternal(t *testing.T) {
	t.Parallel()

	plain := errors.New("disk full")
	extracted := As(plain)
	require.Equal(t, Internal, extracted.Kind)
	require.Equal(t, http.StatusInternalServerError, extracted.HTTPStatus())
	require.Equal(t, "disk full", extracted.Details)

	require.Empty(t, KindOf(plain))
}
