package fetcher

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sertantai/lrt-engine/internal/errs"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	c := New(server.URL, "lrt-engine-test", WithRetryPolicy(RetryPolicy{
		InitialDelay: time.Millisecond,
		Factor:       2,
		MaxAttempts:  3,
		MaxDelay:     10 * time.Millisecond,
	}), WithRateLimit(1000))
	return c, server.Close
}

func TestGetReturnsBodyOnSuccess(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})
	defer closeFn()

	body, err := client.Get(t.Context(), "/ukpga/2024/1")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestGetMapsNotFoundToKindNotFound(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer closeFn()

	_, err := client.Get(t.Context(), "/ukpga/2024/1")
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.Of(err))
}

func TestGetRetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	})
	defer closeFn()

	body, err := client.Get(t.Context(), "/ukpga/2024/1")
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetExhaustsRetriesAndReturnsTransient(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer closeFn()

	_, err := client.Get(t.Context(), "/ukpga/2024/1")
	require.Error(t, err)
	assert.Equal(t, errs.KindTransient, errs.Of(err))
}

func TestGetWithMadeFallbackRetriesMadeSuffix(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/uksi/2024/1/made" {
			w.Write([]byte("as made"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	defer closeFn()

	body, err := client.GetWithMadeFallback(t.Context(), "/uksi/2024/1")
	require.NoError(t, err)
	assert.Equal(t, "as made", string(body))
}

func TestGetWithMadeFallbackInsertsMadeBeforeIntroductionSuffix(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/uksi/2024/1/made/introduction/data.xml" {
			w.Write([]byte("<Legislation/>"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	defer closeFn()

	body, err := client.GetWithMadeFallback(t.Context(), "/uksi/2024/1/introduction/data.xml")
	require.NoError(t, err)
	assert.Equal(t, "<Legislation/>", string(body))
}

func TestGetWithMadeFallbackPropagatesNonNotFoundError(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	defer closeFn()

	_, err := client.GetWithMadeFallback(t.Context(), "/uksi/2024/1")
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.Of(err))
}
