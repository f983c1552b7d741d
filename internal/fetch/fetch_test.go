package fetch_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mac-app-monitor/internal/fetch"
)

func TestRead_UserAgentAndAccept(t *testing.T) {
	t.Setenv("MAM_UA", "test-agent/1.0")
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	b, err := cl.Read(context.Background(), srv.URL, "application/json")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
	assert.Equal(t, "test-agent/1.0", gotUA)
	assert.Equal(t, "application/json", gotAccept)
}

func TestGet_RetryOnRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{Retry: 1, Backoff: time.Millisecond, Timeout: 2 * time.Second})
	require.NoError(t, err)
	resp, err := cl.Get(context.Background(), srv.URL, "")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGet_NoRetryOnNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{Retry: 3, Backoff: time.Millisecond})
	require.NoError(t, err)
	_, err = cl.Get(context.Background(), srv.URL, "")
	var se *fetch.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGet_DefaultIsSingleAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{})
	require.NoError(t, err)
	_, err = cl.Get(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGet_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	_, err = cl.Get(context.Background(), srv.URL, "")
	require.Error(t, err)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return
	}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGet_RateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{RatePerSecond: 0.5, Burst: 1})
	require.NoError(t, err)
	resp, err := cl.Get(context.Background(), srv.URL, "")
	require.NoError(t, err)
	_ = resp.Body.Close()

	// the second token is two seconds away, longer than the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = cl.Get(ctx, srv.URL, "")
	assert.Error(t, err)
}
