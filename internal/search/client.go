package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/beliefatlas/apiserver/types"
)

// Client is an HTTP Lister backed by the profile listing endpoint.
// Dashboards embed it behind a Controller; tools can call it directly.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient constructs a Client for the given API base URL, for
// example "https://api.beliefatlas.example". A nil httpClient falls
// back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
	}
}

type listPayload struct {
	Profiles []types.Profile `json:"profiles"`
	Total    int             `json:"total"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// ListProfiles fetches one page of profiles. A JSON error body from
// the service becomes an *APIError so its message reaches the user
// verbatim.
func (c *Client) ListProfiles(ctx context.Context, req ListRequest) (ListResult, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("limit", strconv.Itoa(req.Limit))
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Role != "" {
		q.Set("role", req.Role)
	}
	if req.Completed != nil {
		q.Set("completed", strconv.FormatBool(*req.Completed))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/profiles?"+q.Encode(), nil)
	if err != nil {
		return ListResult{}, err
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return ListResult{}, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ListResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ListResult{}, err
	}

	if resp.StatusCode != http.StatusOK {
		var payload errorPayload
		if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
			return ListResult{}, &APIError{Message: payload.Error}
		}
		return ListResult{}, fmt.Errorf("list profiles: status %d", resp.StatusCode)
	}

	var payload listPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ListResult{}, err
	}
	return ListResult{Profiles: payload.Profiles, Total: payload.Total}, nil
}
