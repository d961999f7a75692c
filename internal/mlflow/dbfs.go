package mlflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/databricks/databricks-sdk-go/httpclient"
)

const dbfsTrackingPrefix = "dbfs:/databricks/mlflow-tracking/"

type credentialsForWriteRequest struct {
	RunID string   `json:"run_id"`
	Path  []string `json:"path"`
}

type credentialsForWriteResponse struct {
	CredentialInfos []artifactCredential `json:"credential_infos"`
}

// artifactCredential is a signed URI a single artifact can be PUT to.
type artifactCredential struct {
	RunID     string       `json:"run_id"`
	Path      string       `json:"path"`
	SignedURI string       `json:"signed_uri"`
	Headers   []httpHeader `json:"headers"`
	Type      string       `json:"type"`
}

type httpHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// uploadToDBFS uploads through a signed URI issued by the Databricks artifacts API.
func (c *Client) uploadToDBFS(ctx context.Context, artifactURI, filePath, artifactPath string) error {
	runID, err := runIDFromDBFSURI(artifactURI)
	if err != nil {
		return err
	}

	credentials, err := c.credentialsForWrite(ctx, runID, []string{artifactPath})
	if err != nil {
		return fmt.Errorf("failed to get write credentials: %w", err)
	}
	if len(credentials) == 0 {
		return fmt.Errorf("no credentials returned for path: %s", artifactPath)
	}

	if err := c.uploadToSignedURI(ctx, credentials[0], filePath); err != nil {
		return fmt.Errorf("failed to upload to %s signed URI: %w", credentials[0].Type, err)
	}
	return nil
}

// runIDFromDBFSURI parses dbfs:/databricks/mlflow-tracking/{experiment_id}/{run_id}/artifacts.
func runIDFromDBFSURI(artifactURI string) (string, error) {
	if !strings.HasPrefix(artifactURI, dbfsTrackingPrefix) {
		return "", fmt.Errorf("invalid DBFS artifact URI format: %s", artifactURI)
	}
	parts := strings.Split(strings.TrimPrefix(artifactURI, dbfsTrackingPrefix), "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("run ID not found in DBFS URI: %s", artifactURI)
	}
	return parts[1], nil
}

func (c *Client) credentialsForWrite(ctx context.Context, runID string, paths []string) ([]artifactCredential, error) {
	if c.api == nil {
		return nil, fmt.Errorf("DBFS artifacts require a Databricks tracking URI")
	}

	var response credentialsForWriteResponse
	err := c.api.Do(ctx, http.MethodPost, "/api/2.0/mlflow/artifacts/credentials-for-write",
		httpclient.WithRequestData(credentialsForWriteRequest{RunID: runID, Path: paths}),
		httpclient.WithResponseUnmarshal(&response),
	)
	if err != nil {
		return nil, fmt.Errorf("credentials-for-write request failed: %w", err)
	}
	return response.CredentialInfos, nil
}

func (c *Client) uploadToSignedURI(ctx context.Context, credential artifactCredential, filePath string) error {
	file, fileInfo, err := c.openFileWithInfo(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, credential.SignedURI, file)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = fileInfo.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	if credential.Type == "AZURE_SAS_URI" {
		req.Header.Set("x-ms-blob-type", "BlockBlob")
	}
	for _, header := range credential.Headers {
		req.Header.Set(header.Name, header.Value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload to signed URI: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("signed URI upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
