package opendata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// ErrResourceNotFound is returned when a package has no resource with the
// requested name.
var ErrResourceNotFound = errors.New("resource not found in package")

// Client is an HTTP client for a CKAN open-data portal (City of Toronto).
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the given CKAN action API base URL.
// Requests are rate-limited so full-history backfills stay polite.
func NewClient(baseURL string, requestsPerSec float64, burst int) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), burst),
	}
}

type packageShowResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Resources []Resource `json:"resources"`
	} `json:"result"`
}

// Resource is the subset of CKAN resource metadata the pipeline needs.
type Resource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PackageResources fetches the resource list for a package.
func (c *Client) PackageResources(ctx context.Context, packageID string) ([]Resource, error) {
	params := url.Values{}
	params.Set("id", packageID)

	body, err := c.get(ctx, c.baseURL+"/package_show?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp packageShowResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode package metadata: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("package_show unsuccessful for package %s", packageID)
	}
	return resp.Result.Resources, nil
}

// ResourceURL resolves the download URL for a named resource in a package.
func (c *Client) ResourceURL(ctx context.Context, packageID, resourceName string) (string, error) {
	resources, err := c.PackageResources(ctx, packageID)
	if err != nil {
		return "", err
	}
	for _, res := range resources {
		if res.Name == resourceName {
			return res.URL, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrResourceNotFound, resourceName)
}

// ResourceData fetches the raw bytes of a named resource in a package.
func (c *Client) ResourceData(ctx context.Context, packageID, resourceName string) ([]byte, error) {
	resourceURL, err := c.ResourceURL(ctx, packageID, resourceName)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, resourceURL)
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s: status %d", fullURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
