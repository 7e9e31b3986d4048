package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ssq-predictor/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `2024002 2024-01-04 05 11 16 21 27 30 12 0 0
2024001 2024-01-02 01 04 09 17 26 33 07 0 0
bad line
2024003 2024-01-07 02 03 14 19 22 31 40
`

func newFeedServer(t *testing.T, failures int32, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(url string, retries int) *Client {
	return NewClient(&config.Feed{URL: url, Timeout: time.Second, RetryCount: retries, RetryDelay: time.Millisecond})
}

func TestFetchDraws(t *testing.T) {
	srv, calls := newFeedServer(t, 0, sampleFeed)

	records, err := newTestClient(srv.URL, 3).FetchDraws(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024001", records[0].Issue)
	assert.Equal(t, []int{1, 4, 9, 17, 26, 33}, records[0].Primary)
	assert.Equal(t, 12, records[1].Secondary)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestFetchDrawsRetries(t *testing.T) {
	srv, calls := newFeedServer(t, 2, sampleFeed)

	records, err := newTestClient(srv.URL, 3).FetchDraws(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestFetchDrawsGivesUp(t *testing.T) {
	srv, calls := newFeedServer(t, 100, sampleFeed)

	_, err := newTestClient(srv.URL, 2).FetchDraws(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestFetchDrawsEmptyFeed(t *testing.T) {
	srv, _ := newFeedServer(t, 0, "nothing useful\n")
	_, err := newTestClient(srv.URL, 0).FetchDraws(context.Background())
	assert.Error(t, err)
}

func TestFetchDrawsCanceled(t *testing.T) {
	srv, _ := newFeedServer(t, 100, sampleFeed)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL, 5).FetchDraws(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newFeedServer(t, 0, sampleFeed)
	assert.NoError(t, newTestClient(srv.URL, 0).HealthCheck(context.Background()))

	down, _ := newFeedServer(t, 100, sampleFeed)
	assert.Error(t, newTestClient(down.URL, 0).HealthCheck(context.Background()))
}
