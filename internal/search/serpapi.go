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

const defaultSerpAPIBaseURL = "https://serpapi.com"

// SerpAPI implements the Provider interface for the SerpAPI Google
// search endpoint.
type SerpAPI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSerpAPI creates a SerpAPI provider. An empty baseURL selects the
// public endpoint.
func NewSerpAPI(baseURL, apiKey string) *SerpAPI {
	if baseURL == "" {
		baseURL = defaultSerpAPIBaseURL
	}
	return &SerpAPI{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpkit.NewClient(httpkit.WithTimeout(15 * time.Second)),
	}
}

func (s *SerpAPI) Name() string { return "serpapi" }

// serpAPIResponse is the JSON response from SerpAPI's search endpoint.
type serpAPIResponse struct {
	OrganicResults []serpAPIResult `json:"organic_results"`
}

type serpAPIResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

func (s *SerpAPI) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	count := opts.Count
	if count == 0 {
		count = 5
	}

	params := url.Values{
		"engine":  {"google"},
		"q":       {query},
		"num":     {strconv.Itoa(count)},
		"api_key": {s.apiKey},
	}
	if opts.Language != "" {
		params.Set("hl", opts.Language)
	}
	if opts.Country != "" {
		params.Set("gl", opts.Country)
	}

	reqURL := s.baseURL + "/search.json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Unavailable{Provider: "serpapi", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &Unavailable{Provider: "serpapi", Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, &Unavailable{Provider: "serpapi", Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)}
	}

	var sr serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, &Unavailable{Provider: "serpapi", Err: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]Result, 0, len(sr.OrganicResults))
	for i, r := range sr.OrganicResults {
		if i >= count {
			break
		}
		results = append(results, Result{
			Title:   r.Title,
			Link:    r.Link,
			Snippet: StripHTML(r.Snippet),
		})
	}

	return results, nil
}
