package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint = "https://www.wikidata.org/w/api.php"
	DefaultRate     = 10 // requests per second
	maxAttempts     = 3
	imageProperty   = "P18" // image claims; P948 (page banner) is not read
	commonsFilePath = "https://commons.wikimedia.org/wiki/Special:FilePath/"
	preferredLocale = "en"
)

// Latin-script locales tried in order when the preferred one is missing.
var fallbackLocales = []string{"en-gb", "fr", "de", "es", "it", "pt", "nl"}

// Client looks up supplementary images and labels for an entity in the
// external knowledge base. One Fetch per identifier serves both extractions,
// so each identifier costs a single request against the rate-limit budget.
// All calls go through a client-side rate limiter; transient failures are
// retried with exponential backoff and callers keep their local data when
// retries are exhausted.
type Client struct {
	httpClient *http.Client
	endpoint   string
	limiter    *rate.Limiter
	userAgent  string
	retryBase  time.Duration
}

func NewClient(endpoint string, requestsPerSecond int, userAgent string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRate
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   endpoint,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		userAgent:  userAgent,
		retryBase:  time.Second,
	}
}

type entityData struct {
	Labels map[string]struct {
		Language string `json:"language"`
		Value    string `json:"value"`
	} `json:"labels"`
	Claims map[string][]struct {
		Mainsnak struct {
			Datavalue struct {
				Value json.RawMessage `json:"value"`
			} `json:"datavalue"`
		} `json:"mainsnak"`
	} `json:"claims"`
}

type entityResponse struct {
	Entities map[string]entityData `json:"entities"`
}

// Entity is one decoded knowledge-base record. Image and label extraction
// are local, so a single Fetch covers both.
type Entity struct {
	data entityData
}

// Fetch looks the entity up with retries and backoff.
func (c *Client) Fetch(ctx context.Context, externalID string) (*Entity, error) {
	data, err := c.fetchEntity(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return &Entity{data: *data}, nil
}

// SetRetryBase overrides the backoff base between retry attempts.
func (c *Client) SetRetryBase(d time.Duration) {
	c.retryBase = d
}

// Images returns existing merged with the entity's non-banner images. The
// existing images always survive, in their original order.
func (e *Entity) Images(existing []string) []string {
	merged := append([]string(nil), existing...)
	for _, claim := range e.data.Claims[imageProperty] {
		var fileName string
		if err := json.Unmarshal(claim.Mainsnak.Datavalue.Value, &fileName); err != nil || fileName == "" {
			continue
		}
		imageURL := commonsFilePath + url.PathEscape(fileName)
		if !contains(merged, imageURL) {
			merged = append(merged, imageURL)
		}
	}
	return merged
}

// Labels returns the entity's locale-to-label map.
func (e *Entity) Labels() map[string]string {
	labels := make(map[string]string, len(e.data.Labels))
	for locale, label := range e.data.Labels {
		if label.Value != "" {
			labels[locale] = label.Value
		}
	}
	return labels
}

// SelectBestLabel picks the preferred-locale label when present, then walks
// the Latin-script fallback list, then takes the lexicographically first
// remaining locale. Returns "" when no labels exist.
func SelectBestLabel(labels map[string]string) string {
	if label, ok := labels[preferredLocale]; ok {
		return label
	}
	for _, locale := range fallbackLocales {
		if label, ok := labels[locale]; ok {
			return label
		}
	}

	locales := make([]string, 0, len(labels))
	for locale := range labels {
		locales = append(locales, locale)
	}
	if len(locales) == 0 {
		return ""
	}
	sort.Strings(locales)
	return labels[locales[0]]
}

// fetchEntity performs the rate-limited lookup with up to maxAttempts tries
// and exponential backoff between them.
func (c *Client) fetchEntity(ctx context.Context, externalID string) (*entityData, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryBase << (attempt - 1)
			slog.Debug("Retrying enrichment lookup",
				"external_id", externalID, "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		entity, err := c.doRequest(ctx, externalID)
		if err == nil {
			return entity, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("enrichment failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, externalID string) (*entityData, error) {
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", externalID)
	params.Set("props", "claims|labels")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed entityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	entity, ok := parsed.Entities[externalID]
	if !ok {
		return nil, fmt.Errorf("entity %s missing from response", externalID)
	}
	return &entity, nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
