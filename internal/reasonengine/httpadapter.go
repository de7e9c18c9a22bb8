package reasonengine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
)

// httpItem is the wire shape a JSON filings/news endpoint is expected
// to return; adapters for concrete providers (SEC EDGAR full-text
// search, DART disclosure feed, a news aggregator) all normalize their
// own payload into this before handing it back as Candidates.
type httpItem struct {
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Title       string    `json:"title"`
}

// HTTPAdapter is a generic JSON-over-HTTP Fetcher: it GETs a templated
// URL and maps the response into Candidates. retryablehttp.Client
// supplies the exponential-backoff retry budget (spec.md §5), capped by
// cfg's backoff bounds, so no hand-rolled retry loop is needed here.
type HTTPAdapter struct {
	Name       string
	ReasonType domain.ReasonType
	BaseURL    string // must contain %s for symbol, %s for market
	client     *retryablehttp.Client
}

// NewHTTPAdapter builds an adapter whose retry behavior is driven by
// cfg (spec.md §4.3: "bounded retries with exponential backoff").
func NewHTTPAdapter(name string, reasonType domain.ReasonType, baseURL string, cfg config.ReasonEngineConfig) *HTTPAdapter {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = cfg.AdapterMaxRetries
	client.RetryWaitMin = cfg.AdapterBackoffBase
	client.RetryWaitMax = cfg.AdapterBackoffMax
	client.HTTPClient.Timeout = cfg.AdapterTimeout
	return &HTTPAdapter{Name: name, ReasonType: reasonType, BaseURL: baseURL, client: client}
}

func (a *HTTPAdapter) Fetch(ctx context.Context, symbol string, market domain.Market, tr TimeRange) ([]Candidate, error) {
	endpoint := fmt.Sprintf(a.BaseURL, url.QueryEscape(symbol), url.QueryEscape(string(market)))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("reasoncard: build request for %s: %w", a.Name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reasoncard: fetch %s: %w", a.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reasoncard: %s returned status %d", a.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reasoncard: read %s body: %w", a.Name, err)
	}
	var items []httpItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("reasoncard: decode %s body: %w", a.Name, err)
	}

	out := make([]Candidate, 0, len(items))
	for _, it := range items {
		if it.PublishedAt.Before(tr.From) || it.PublishedAt.After(tr.To) {
			continue
		}
		out = append(out, Candidate{
			ReasonType:     a.ReasonType,
			Summary:        it.Summary,
			SourceURL:      it.URL,
			PublishedAtUTC: it.PublishedAt,
			RawText:        it.Title,
		})
	}
	return out, nil
}
