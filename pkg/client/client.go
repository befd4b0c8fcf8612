package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kurihiro0119/github-sbom-licenses/internal/domain"
)

// Client is the API client for the licensing report server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-200 answer of the report server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error: %d %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Message)
}

// GetOrgSummary retrieves the report summary of an organization
func (c *Client) GetOrgSummary(org string) (*domain.OrgSummary, error) {
	var response struct {
		Data *domain.OrgSummary `json:"data"`
	}
	if err := c.get(orgPath(org, "summary"), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetLicenseCounts retrieves dependency counts per license
func (c *Client) GetLicenseCounts(org string) ([]*domain.LicenseCount, error) {
	var response struct {
		Data []*domain.LicenseCount `json:"data"`
	}
	if err := c.get(orgPath(org, "licenses"), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetRepoSummaries retrieves per-repository summaries
func (c *Client) GetRepoSummaries(org string) ([]*domain.RepoSummary, error) {
	var response struct {
		Data []*domain.RepoSummary `json:"data"`
	}
	if err := c.get(orgPath(org, "repos"), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetRepoDependencies retrieves the dependencies of a repository
func (c *Client) GetRepoDependencies(org, repo string) ([]*domain.DependencyRecord, error) {
	var response struct {
		Data []*domain.DependencyRecord `json:"data"`
	}
	if err := c.get(orgPath(org, "repos/"+url.PathEscape(repo)+"/dependencies"), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetCopyleftDependencies retrieves every copyleft-licensed dependency
func (c *Client) GetCopyleftDependencies(org string) ([]*domain.DependencyRecord, error) {
	var response struct {
		Data []*domain.DependencyRecord `json:"data"`
	}
	if err := c.get(orgPath(org, "copyleft"), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck() error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func orgPath(org, rest string) string {
	return fmt.Sprintf("/api/v1/orgs/%s/%s", url.PathEscape(org), rest)
}

func (c *Client) get(path string, result interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}

		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
