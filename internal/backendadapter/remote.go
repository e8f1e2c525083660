package backendadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// FetchRemote implements the two-hop Terraform Cloud / Enterprise fetch
// described in spec §4.1: resolve the current state version, then GET the
// hosted download URL it points to.
func FetchRemote(ctx context.Context, cfg *Config, client *http.Client) (*Result, error) {
	if cfg.Organization == "" || cfg.Workspace == "" {
		return nil, newError(ErrConfiguration, "remote backend requires organization and workspace")
	}

	token := cfg.Token
	if token == "" {
		token = os.Getenv("TERRAFORM_CLOUD_TOKEN")
	}
	if token == "" {
		return nil, newError(ErrAuthorization, "remote backend requires an API token")
	}

	hostname := cfg.Hostname
	if hostname == "" {
		hostname = "app.terraform.io"
	}
	hostname = strings.TrimSuffix(hostname, "/")

	if client == nil {
		client = http.DefaultClient
	}

	stateURL := fmt.Sprintf("https://%s/api/v2/organizations/%s/workspaces/%s/state-versions/current",
		hostname, cfg.Organization, cfg.Workspace)

	downloadURL, err := fetchDownloadURL(ctx, client, stateURL, token)
	if err != nil {
		return nil, err
	}

	data, err := fetchBytes(ctx, client, downloadURL, "")
	if err != nil {
		return nil, err
	}

	return &Result{BackendTag: string(KindRemote), SizeBytes: int64(len(data)), RawBytes: data}, nil
}

func fetchDownloadURL(ctx context.Context, client *http.Client, stateURL, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, stateURL, nil)
	if err != nil {
		return "", newError(ErrTransport, "build state-version request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/vnd.api+json")

	resp, err := client.Do(req)
	if err != nil {
		return "", newError(ErrTransport, "query terraform cloud workspace: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", newError(ErrNotFound, "workspace state version not found")
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", newError(ErrAuthorization, "terraform cloud rejected the API token")
	}
	if resp.StatusCode >= 300 {
		return "", newError(ErrTransport, "terraform cloud returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Attributes struct {
				HostedStateDownloadURL string `json:"hosted-state-download-url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", newError(ErrTransport, "decode state-version response: %w", err)
	}
	if payload.Data.Attributes.HostedStateDownloadURL == "" {
		return "", newError(ErrTransport, "state-version response missing hosted-state-download-url")
	}
	return payload.Data.Attributes.HostedStateDownloadURL, nil
}

func fetchBytes(ctx context.Context, client *http.Client, url, bearer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError(ErrTransport, "build download request: %w", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, newError(ErrTransport, "download hosted state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, newError(ErrTransport, "hosted state download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrTransport, "read hosted state body: %w", err)
	}
	return data, nil
}
