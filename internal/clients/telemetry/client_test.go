package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
)

func newTestClient(t *testing.T, url string) Client {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	t.Setenv("IOT_SERVER_URL", url)
	t.Setenv("IOT_FEED_TIMEOUT_SECONDS", "2")
	return NewClient(log)
}

func TestFetchLatestAllFeeds(t *testing.T) {
	values := map[string]string{
		FeedTemperature: "21.5",
		FeedHumidity:    "55",
		FeedSoil:        "42.0",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feed := r.URL.Query().Get("feed")
		v, ok := values[feed]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"data":[{"value":%s}]}`, v)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("feeds: got %d, want 3 (%v)", len(got), got)
	}
	if got[FeedTemperature] != 21.5 || got[FeedHumidity] != 55 || got[FeedSoil] != 42 {
		t.Fatalf("values wrong: %v", got)
	}
}

func TestFetchLatestToleratesPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("feed") {
		case FeedSoil:
			fmt.Fprint(w, `{"data":[{"value":37}]}`)
		case FeedHumidity:
			w.WriteHeader(http.StatusInternalServerError)
		default:
			fmt.Fprint(w, `{"data":[]}`)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("only the soil feed should survive, got %v", got)
	}
	if got[FeedSoil] != 37 {
		t.Fatalf("soil value: got %v, want 37", got[FeedSoil])
	}
}

func TestFetchLatestAllFeedsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("all feeds down should yield an empty map, got %v", got)
	}
}
