package xclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"mentiongraph/internal/metrics"
	"mentiongraph/internal/model"
	"mentiongraph/internal/util"
)

// XClient defines the X API calls used to collect messages.
type XClient interface {
	// SearchRecentMessages returns recent posts matching query with an ID
	// greater than sinceID (0 for no bound), authors resolved to usernames.
	SearchRecentMessages(ctx context.Context, query string, limit int, sinceID int64) ([]model.Message, error)
}

// HTTPClient is a simple bearer-token client for X API v2.
type HTTPClient struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient(bearerToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:     "https://api.twitter.com/2",
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("X_API_MAX_ATTEMPTS", 5),
		baseBackoff: time.Duration(getEnvInt("X_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

func (c *HTTPClient) auth(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
}

type searchResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		AuthorID  string    `json:"author_id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

// SearchRecentMessages implements XClient via /tweets/search/recent. limit is
// the page size; pages are followed until the API returns no next_token.
func (c *HTTPClient) SearchRecentMessages(ctx context.Context, query string, limit int, sinceID int64) ([]model.Message, error) {
	var out []model.Message
	token := ""
	for {
		page, next, err := c.searchPage(ctx, query, limit, sinceID, token)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		if next == token {
			return nil, fmt.Errorf("x api repeated next_token %q", next)
		}
		token = next
	}
}

func (c *HTTPClient) searchPage(ctx context.Context, query string, limit int, sinceID int64, token string) ([]model.Message, string, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("max_results", strconv.Itoa(clamp(limit, 10, 100)))
	q.Set("tweet.fields", "created_at,author_id")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "username")
	if sinceID > 0 {
		q.Set("since_id", strconv.FormatInt(sinceID, 10))
	}
	if token != "" {
		q.Set("next_token", token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tweets/search/recent?"+q.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	c.auth(req)
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("x api status %d", resp.StatusCode)
	}
	var raw searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, "", fmt.Errorf("decode search response: %w", err)
	}
	usernames := make(map[string]string, len(raw.Includes.Users))
	for _, u := range raw.Includes.Users {
		usernames[u.ID] = u.Username
	}
	out := make([]model.Message, 0, len(raw.Data))
	for _, d := range raw.Data {
		id, err := strconv.ParseInt(d.ID, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("bad message id %q: %w", d.ID, err)
		}
		author, ok := usernames[d.AuthorID]
		if !ok {
			// author not expanded; the numeric id still identifies them
			author = d.AuthorID
		}
		out = append(out, model.Message{
			ID:        id,
			Author:    author,
			Text:      util.NormalizeWhitespace(d.Text),
			Timestamp: d.CreatedAt.UTC(),
		})
	}
	return out, raw.Meta.NextToken, nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// doWithRetry retries on transport errors, 429 and 5xx with exponential
// backoff, honouring Retry-After. Every attempt waits on the rate limiter.
func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(req.URL.Path)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("x api status %d", resp.StatusCode)
			// jitter +/-20%
			if jitter := time.Duration(float64(wait) * 0.2); jitter > 0 {
				wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
			}
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
