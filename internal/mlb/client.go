// Package mlb fetches schedule, live feed and win probability documents from
// the MLB Stats API and converts them into domain models.
package mlb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const sportIDMLB = 1

// StatusError is returned for a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// ClientConfig tunes retry and pacing behavior.
type ClientConfig struct {
	MaxRetries        int
	RetryDelayBase    time.Duration
	RequestsPerSecond float64
}

// Client provides access to the MLB Stats API
type Client struct {
	baseURL        string
	baseURLV11     string
	httpClient     *http.Client
	limiter        *rate.Limiter
	inflight       singleflight.Group
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Stats API client
func NewClient(baseURL, baseURLV11 string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		baseURL:        baseURL,
		baseURLV11:     baseURLV11,
		httpClient:     &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(limit, 4),
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

// FetchSchedule retrieves the games scheduled on date (YYYY-MM-DD).
func (c *Client) FetchSchedule(ctx context.Context, date string) ([]models.GameSummary, error) {
	u, err := url.Parse(c.baseURL + "/schedule")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("sportId", fmt.Sprintf("%d", sportIDMLB))
	q.Set("date", date)
	q.Set("hydrate", "team,linescore")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	return ParseSchedule(body)
}

// FetchLiveFeed retrieves and parses the live game document.
func (c *Client) FetchLiveFeed(ctx context.Context, gameID string) (*models.LiveFeed, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/game/%s/feed/live", c.baseURLV11, url.PathEscape(gameID)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch live feed: %w", err)
	}
	feed, err := ParseLiveFeed(body)
	if err != nil {
		return nil, err
	}
	if feed.GameID == "" {
		feed.GameID = gameID
	}
	return feed, nil
}

// FetchWinProbability retrieves the win probability series of a game.
func (c *Client) FetchWinProbability(ctx context.Context, gameID string) ([]models.WinProbabilitySample, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/game/%s/winProbability", c.baseURL, url.PathEscape(gameID)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch win probability: %w", err)
	}
	return ParseWinProbability(body)
}

// get performs a GET, sharing the response among concurrent callers of the
// same URL.
func (c *Client) get(ctx context.Context, urlStr string) ([]byte, error) {
	v, err, shared := c.inflight.Do(urlStr, func() (interface{}, error) {
		return c.doRequest(ctx, urlStr)
	})
	if shared {
		logger.Debug("Shared in-flight response for %s", urlStr)
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// doRequest performs HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, urlStr string) ([]byte, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelayBase * time.Duration(i)):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = &StatusError{URL: urlStr, StatusCode: resp.StatusCode}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{URL: urlStr, StatusCode: resp.StatusCode}
		}
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read body: %w", readErr)
			continue
		}
		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
