package search

import (
	"context"
	"encoding/json"

	"github.com/arlow/fitcoach/internal/tools"
)

// RegisterTool adds the web_search tool to the registry, backed by the
// manager's primary provider. The tool input is the raw query string;
// the output is a JSON array of results for structured consumption by
// the agent.
func RegisterTool(r *tools.Registry, mgr *Manager, opts Options) {
	r.Register(&tools.Tool{
		Name: "web_search",
		Description: "Searches the web and returns a ranked list of results " +
			"with title, link and snippet. Input is the search query.",
		Handler: func(ctx context.Context, input string) (string, error) {
			results, err := mgr.Search(ctx, input, opts)
			if err != nil {
				return "", err
			}

			out, err := json.Marshal(results)
			if err != nil {
				return FormatResults(results, len(results)), nil
			}
			return string(out), nil
		},
	})
}
