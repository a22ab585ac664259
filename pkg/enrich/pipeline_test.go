package enrich

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/moviemeta/internal/testutil"
	"github.com/Sternrassler/moviemeta/pkg/cache"
	"github.com/Sternrassler/moviemeta/pkg/catalog"
	"github.com/Sternrassler/moviemeta/pkg/movie"
	"github.com/Sternrassler/moviemeta/pkg/ratelimit"
	"github.com/rs/zerolog"
)

const pipelineKey = "pipeline-key"

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// newPipeline wires a real catalog client against the mock server.
func newPipeline(t *testing.T, mock *testutil.MockTMDB) *Enricher {
	t.Helper()

	cfg := catalog.DefaultConfig()
	cfg.BaseURL = mock.URL()

	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig(), zerolog.Nop())
	client, err := catalog.New(cfg, limiter, cache.NewManager(cache.DefaultConfig()),
		catalog.WithLogger(zerolog.Nop()),
		catalog.WithSleep(noSleep),
	)
	if err != nil {
		t.Fatalf("catalog.New returned error: %v", err)
	}
	return newTestEnricher(client)
}

func TestPipeline_InceptionTrio(t *testing.T) {
	mock := testutil.NewMockTMDB()
	defer mock.Close()
	mock.AddMovie("Inception", testutil.MockMovie{
		ID:          27205,
		Title:       "Inception",
		PosterPath:  "/inception.jpg",
		ReleaseDate: "2010-07-15",
		GenreIDs:    []int{28, 878},
	})

	e := newPipeline(t, mock)

	records, err := e.Enrich(context.Background(), inputs("Inception", "inception ", "INCEPTION"), pipelineKey)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.ID != "catalog-27205" || rec.ReleaseYear == nil || *rec.ReleaseYear != 2010 {
		t.Errorf("record = %+v, want catalog-27205 from 2010", rec)
	}
	if n := mock.TotalRequests(); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
}

func TestPipeline_NetworkFailureFallback(t *testing.T) {
	mock := testutil.NewMockTMDB()
	defer mock.Close()
	mock.AddMovie("Heat", testutil.MockMovie{ID: 949, Title: "Heat"})
	mock.Script("Foo", testutil.NewNetworkFailure())

	e := newPipeline(t, mock)

	records, err := e.Enrich(context.Background(), inputs("Heat", "Foo"), pipelineKey)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].ID != "catalog-949" {
		t.Errorf("records[0].ID = %q, want catalog-949", records[0].ID)
	}
	foo := records[1]
	if !strings.HasPrefix(foo.ID, "fallback-") || foo.Title != "Foo" || foo.CatalogID != nil {
		t.Errorf("records[1] = %+v, want fallback for Foo", foo)
	}
}

func TestPipeline_AllThrottled(t *testing.T) {
	mock := testutil.NewMockTMDB()
	defer mock.Close()

	titles := []string{"Alien", "Aliens", "Heat", "Ronin"}
	for _, title := range titles {
		for i := 0; i <= catalog.DefaultMaxThrottleRetries; i++ {
			mock.Script(title, testutil.NewThrottledResponse("0"))
		}
	}

	e := newPipeline(t, mock)

	records, err := e.Enrich(context.Background(), inputs(titles...), pipelineKey)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}

	if len(records) != len(titles) {
		t.Fatalf("len(records) = %d, want %d", len(records), len(titles))
	}
	for i, rec := range records {
		if !strings.HasPrefix(rec.ID, "fallback-") || rec.Title != titles[i] {
			t.Errorf("records[%d] = %+v, want fallback for %s", i, rec, titles[i])
		}
	}
	wantCalls := len(titles) * (catalog.DefaultMaxThrottleRetries + 1)
	if n := mock.TotalRequests(); n != wantCalls {
		t.Errorf("network calls = %d, want %d", n, wantCalls)
	}
}

func TestPipeline_ThrottledThenSucceeds(t *testing.T) {
	mock := testutil.NewMockTMDB()
	defer mock.Close()
	mock.AddMovie("Heat", testutil.MockMovie{ID: 949, Title: "Heat"})
	mock.Script("Heat", testutil.NewThrottledResponse("0"), testutil.NewThrottledResponse("0"))

	e := newPipeline(t, mock)

	records, err := e.Enrich(context.Background(), inputs("Heat"), pipelineKey)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if len(records) != 1 || records[0].ID != "catalog-949" {
		t.Errorf("records = %+v, want catalog-949", records)
	}
	if n := mock.RequestCount("Heat"); n != 3 {
		t.Errorf("network calls = %d, want 3", n)
	}
}

func TestPipeline_BoundedConcurrency(t *testing.T) {
	mock := testutil.NewMockTMDB()
	defer mock.Close()

	titles := make([]string, 25)
	for i := range titles {
		titles[i] = fmt.Sprintf("Film %02d", i)
		mock.AddMovie(titles[i], testutil.MockMovie{ID: int64(i + 1), Title: titles[i]})
	}

	e := newPipeline(t, mock)

	records, err := e.Enrich(context.Background(), inputs(titles...), pipelineKey)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}

	if len(records) != 25 {
		t.Errorf("len(records) = %d, want 25", len(records))
	}
	if peak := mock.MaxInFlight(); peak > DefaultBatchSize {
		t.Errorf("max in flight = %d, want <= %d", peak, DefaultBatchSize)
	}
	for _, key := range mock.APIKeys() {
		if key != pipelineKey {
			t.Errorf("api key sent = %q, want %q", key, pipelineKey)
		}
	}
	for i, rec := range records {
		if rec.ID != movie.CatalogKey(int64(i+1)) {
			t.Errorf("records[%d].ID = %q, want %s", i, rec.ID, movie.CatalogKey(int64(i+1)))
		}
	}
}
