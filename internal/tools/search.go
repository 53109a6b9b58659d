package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultSearchEndpoint = "https://api.duckduckgo.com/"

// WebSearch queries the DuckDuckGo instant-answer API and returns a plain
// text digest of the abstract and related topics. Like every tool, failures
// (network errors, bad status, no results) are reported in the Result.
type WebSearch struct {
	// Client is the HTTP client used for requests. Nil uses a default
	// client with a 10 second timeout.
	Client *http.Client
	// Endpoint overrides the API base URL, mainly for tests. Empty uses
	// the public API.
	Endpoint string
	// MaxResults caps how many related topics are included. Zero means 5.
	MaxResults int
}

// Name implements Tool.
func (t *WebSearch) Name() string { return "web_search" }

// instantAnswer is the subset of the DuckDuckGo response we read.
type instantAnswer struct {
	Heading       string         `json:"Heading"`
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

// relatedTopic is either a result (Text set) or a category node whose
// Topics nest further results.
type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Topics   []relatedTopic `json:"Topics"`
}

// Run implements Tool.
func (t *WebSearch) Run(ctx context.Context, input string) *Result {
	query := strings.TrimSpace(input)
	if query == "" {
		return failure(t.Name(), "no search query provided")
	}

	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = defaultSearchEndpoint
	}
	reqURL := endpoint + "?" + url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return failure(t.Name(), fmt.Sprintf("build search request: %v", err))
	}

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return failure(t.Name(), fmt.Sprintf("search request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failure(t.Name(), fmt.Sprintf("search returned status %d", resp.StatusCode))
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return failure(t.Name(), fmt.Sprintf("decode search response: %v", err))
	}

	output := t.render(&answer)
	if output == "" {
		return failure(t.Name(), fmt.Sprintf("no results for %q", query))
	}

	return &Result{
		Success: true,
		Output:  output,
		Metadata: map[string]string{
			"tool_name": t.Name(),
			"query":     query,
		},
	}
}

// render flattens the answer into the text block workers fold into prompts.
func (t *WebSearch) render(answer *instantAnswer) string {
	limit := t.MaxResults
	if limit <= 0 {
		limit = 5
	}

	var lines []string
	if answer.AbstractText != "" {
		head := answer.AbstractText
		if answer.Heading != "" {
			head = answer.Heading + ": " + head
		}
		if answer.AbstractURL != "" {
			head += " (" + answer.AbstractURL + ")"
		}
		lines = append(lines, head)
	}

	topics := flattenTopics(answer.RelatedTopics)
	if len(topics) > limit {
		topics = topics[:limit]
	}
	for _, topic := range topics {
		line := "- " + topic.Text
		if topic.FirstURL != "" {
			line += " (" + topic.FirstURL + ")"
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// flattenTopics unnests category nodes into a flat result list.
func flattenTopics(topics []relatedTopic) []relatedTopic {
	var out []relatedTopic
	for _, topic := range topics {
		if topic.Text != "" {
			out = append(out, topic)
		}
		if len(topic.Topics) > 0 {
			out = append(out, flattenTopics(topic.Topics)...)
		}
	}
	return out
}
