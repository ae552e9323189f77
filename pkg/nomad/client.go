package nomad

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/argos-watch/argos/pkg/domain"
)

// Client issues stop calls against the Nomad control API.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient creates a Nomad client for the given base endpoint and ACL
// token. The underlying HTTP client carries no timeout: the poll loop is
// deliberately synchronous and leaves deadline enforcement to the server
// side.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		http:     &http.Client{},
	}
}

// StopJob deregisters the job without purging it, equivalent to
// DELETE {endpoint}/v1/job/{name}?purge=false. Exactly one attempt is made;
// the outcome is classified for observability, never retried here.
func (c *Client) StopJob(ctx context.Context, job domain.JobName) (domain.StopOutcome, error) {
	stopURL := fmt.Sprintf("%s/v1/job/%s?purge=false", c.endpoint, url.PathEscape(string(job)))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, stopURL, nil)
	if err != nil {
		return domain.StopTransportFailure, fmt.Errorf("failed to build stop request for %s: %w", job, err)
	}
	req.Header.Set("X-Nomad-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.StopTransportFailure, fmt.Errorf("stop call for %s failed: %w", job, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return domain.StopSuccess, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.StopAuthFailure, fmt.Errorf("stop call for %s rejected: %s", job, resp.Status)
	case resp.StatusCode == http.StatusNotFound || strings.Contains(strings.ToLower(string(body)), "job not found"):
		return domain.StopNotFound, fmt.Errorf("job %s not found: %s", job, resp.Status)
	default:
		return domain.StopOtherFailure, fmt.Errorf("stop call for %s returned %s: %s", job, resp.Status, strings.TrimSpace(string(body)))
	}
}

// DryRunClient satisfies the same contract as Client but never leaves the
// process. Every stop is classified as skipped.
type DryRunClient struct{}

func NewDryRunClient() *DryRunClient {
	return &DryRunClient{}
}

func (d *DryRunClient) StopJob(ctx context.Context, job domain.JobName) (domain.StopOutcome, error) {
	return domain.StopSkipped, nil
}
