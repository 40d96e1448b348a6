package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/arlow/fitcoach/internal/httpkit"
)

const defaultBraveBaseURL = "https://api.search.brave.com"

// Brave implements the Provider interface for the Brave Search API.
type Brave struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBrave creates a Brave Search provider. An empty baseURL selects
// the public endpoint.
func NewBrave(baseURL, apiKey string) *Brave {
	if baseURL == "" {
		baseURL = defaultBraveBaseURL
	}
	return &Brave{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpkit.NewClient(httpkit.WithTimeout(15 * time.Second)),
	}
}

func (b *Brave) Name() string { return "brave" }

// braveResponse is the JSON response from Brave's web search API.
type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (b *Brave) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	count := opts.Count
	if count == 0 {
		count = 5
	}

	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(count)},
	}
	if opts.Language != "" {
		params.Set("search_lang", opts.Language)
	}
	if opts.Country != "" {
		params.Set("country", opts.Country)
	}

	reqURL := b.baseURL + "/res/v1/web/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Unavailable{Provider: "brave", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &Unavailable{Provider: "brave", Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, &Unavailable{Provider: "brave", Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)}
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, &Unavailable{Provider: "brave", Err: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]Result, 0, len(br.Web.Results))
	for _, r := range br.Web.Results {
		results = append(results, Result{
			Title:   r.Title,
			Link:    r.URL,
			Snippet: StripHTML(r.Description),
		})
	}

	return results, nil
}
