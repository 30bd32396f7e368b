package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/buildlens/backend/internal/logger"
)

// Terminal fetch errors. Neither is worth retrying: a malformed archive or
// an archive without text entries will not improve on a second attempt.
var (
	ErrEmptyLog   = errors.New("log archive contains no .txt entries")
	ErrBadArchive = errors.New("log archive is not a valid zip file")
)

// ProviderService downloads run log archives from the CI provider. The
// provider hands out a short-lived redirect URL for the ZIP archive.
type ProviderService struct {
	apiURL string
	client *http.Client
}

func NewProviderService(apiURL string) *ProviderService {
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}
	return &ProviderService{
		apiURL: apiURL,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// FetchRunLogs downloads and unpacks the log archive for a run, returning
// the concatenated text of every .txt entry. Each entry is prefixed with a
// "--- Log File: <name> ---" marker line that the step detector treats as a
// first-class step boundary.
func (ps *ProviderService) FetchRunLogs(ctx context.Context, repoFullName string, providerRunID int64) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/actions/runs/%d/logs", ps.apiURL, repoFullName, providerRunID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create log request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := ps.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("log download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("provider returned status %d fetching logs: %s", resp.StatusCode, string(body))
	}

	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read log archive: %w", err)
	}

	logger.Debug("Downloaded log archive", map[string]interface{}{
		"repo":  repoFullName,
		"bytes": len(archive),
	})

	return ExtractLogArchive(archive)
}

// ExtractLogArchive unpacks a ZIP archive and concatenates its .txt entries
// in archive order.
func ExtractLogArchive(archive []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadArchive, err)
	}

	var b strings.Builder
	entries := 0

	for _, file := range reader.File {
		if file.FileInfo().IsDir() || !strings.HasSuffix(file.Name, ".txt") {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open archive entry %q: %w", file.Name, err)
		}
		contents, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read archive entry %q: %w", file.Name, err)
		}

		fmt.Fprintf(&b, "\n--- Log File: %s ---\n%s", file.Name, contents)
		entries++
	}

	if entries == 0 {
		return "", ErrEmptyLog
	}

	return b.String(), nil
}
