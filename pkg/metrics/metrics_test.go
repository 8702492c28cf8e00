package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kerbaras/tachireader/pkg/data"
	"github.com/kerbaras/tachireader/pkg/reader"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	fail map[int]bool
}

func (f *fakeSource) PageCount(ctx context.Context, chapter data.Chapter) (int, error) {
	return chapter.PageCount, nil
}

func (f *fakeSource) FetchPage(ctx context.Context, chapter data.Chapter, index int, onProgress reader.ProgressFunc) ([]byte, error) {
	if f.fail[index] {
		return nil, fmt.Errorf("page %d: gone", index)
	}
	return make([]byte, 128), nil
}

type fixedPreferences struct{ threads, preload int }

func (p fixedPreferences) Threads() int { return p.threads }
func (p fixedPreferences) Preload() int { return p.preload }

func TestNewCollector_Registers(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewCollector(registry)

	// Vectors without observations are not gathered yet.
	count, err := testutil.GatherAndCount(registry,
		"tachireader_pages_fetch_duration_seconds",
		"tachireader_pages_image_bytes",
		"tachireader_pages_fetches_in_flight",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Panics(t, func() { NewCollector(registry) }, "double registration must fail")
}

func TestNewCollector_NilRegisterer(t *testing.T) {
	c := NewCollector(nil)
	c.RequestSubmitted(reader.PriorityExplicit)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.requestsTotal.WithLabelValues("explicit")))
}

func TestCollector_FetchOutcomes(t *testing.T) {
	c := NewCollector(nil)

	c.FetchStarted(nil)
	c.FetchStarted(nil)
	c.FetchStarted(nil)
	assert.Equal(t, float64(3), testutil.ToFloat64(c.inFlight))

	c.FetchFinished(nil, nil, time.Millisecond)
	c.FetchFinished(nil, errors.New("boom"), time.Millisecond)
	c.FetchFinished(nil, fmt.Errorf("fetch: %w", context.Canceled), time.Millisecond)

	assert.Zero(t, testutil.ToFloat64(c.inFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.fetchesTotal.WithLabelValues(ResultReady)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.fetchesTotal.WithLabelValues(ResultError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.fetchesTotal.WithLabelValues(ResultCancelled)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.fetchDuration))
}

func TestCollector_ObservesLoader(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	chapter := data.Chapter{MangaID: 1, Index: 1, PageCount: 3}
	source := &fakeSource{fail: map[int]bool{2: true}}
	loader := reader.NewLoader(context.Background(), chapter, source, fixedPreferences{threads: 2, preload: 2}, reader.WithObserver(c))
	defer loader.Recycle()

	pages, err := loader.Pages(context.Background())
	require.NoError(t, err)
	loader.LoadPage(pages[0])

	require.Eventually(t, func() bool {
		finished := testutil.ToFloat64(c.fetchesTotal.WithLabelValues(ResultReady)) +
			testutil.ToFloat64(c.fetchesTotal.WithLabelValues(ResultError))
		return finished == 3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.requestsTotal.WithLabelValues("explicit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.requestsTotal.WithLabelValues("preload")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.fetchesTotal.WithLabelValues(ResultReady)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.fetchesTotal.WithLabelValues(ResultError)))
}

func TestHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)
	c.RequestSubmitted(reader.PriorityRetry)

	server := httptest.NewServer(Handler(registry))
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tachireader_pages_requests_total{priority="retry"} 1`)
}
