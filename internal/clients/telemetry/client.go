// Package telemetry talks to the external IoT telemetry endpoint. The three
// feeds are fetched concurrently with a short per-request timeout; a feed
// that fails or times out is omitted rather than failing the whole fetch.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/utils"
)

const (
	FeedTemperature = "temperature"
	FeedHumidity    = "humidity"
	FeedSoil        = "soil"
)

var feeds = []string{FeedTemperature, FeedHumidity, FeedSoil}

type Client interface {
	// FetchLatest returns the latest value per feed. Only feeds that answered
	// are present in the map; an empty map is not an error.
	FetchLatest(ctx context.Context) (map[string]float64, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	perCallTTL time.Duration
}

func NewClient(log *logger.Logger) Client {
	clientLog := log.With("client", "TelemetryClient")
	baseURL := utils.GetEnv("IOT_SERVER_URL", "https://server-cloud-v645.onrender.com/history", log)
	timeoutSec := utils.GetEnvAsInt("IOT_FEED_TIMEOUT_SECONDS", 5, log)
	return &client{
		log:        clientLog,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		perCallTTL: time.Duration(timeoutSec) * time.Second,
	}
}

type feedResponse struct {
	Data []struct {
		Value json.Number `json:"value"`
	} `json:"data"`
}

func (c *client) FetchLatest(ctx context.Context) (map[string]float64, error) {
	values := make(map[string]float64, len(feeds))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(feeds))
	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			val, err := c.fetchFeed(gctx, feed)
			if err != nil {
				// Per-feed failures are tolerated; the reading is simply
				// written without this feed.
				c.log.Warn("Telemetry feed fetch failed", "feed", feed, "error", err)
				return nil
			}
			mu.Lock()
			values[feed] = val
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

func (c *client) fetchFeed(ctx context.Context, feed string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.perCallTTL)
	defer cancel()

	q := url.Values{}
	q.Set("feed", feed)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feed %q returned status %d", feed, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	var parsed feedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, fmt.Errorf("feed %q decode: %w", feed, err)
	}
	if len(parsed.Data) == 0 {
		return 0, fmt.Errorf("feed %q returned no data", feed)
	}
	val, err := parsed.Data[0].Value.Float64()
	if err != nil {
		return 0, fmt.Errorf("feed %q value parse: %w", feed, err)
	}
	c.log.Debug("Telemetry feed fetched", "feed", feed, "value", val)
	return val, nil
}
