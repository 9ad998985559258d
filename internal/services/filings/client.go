// Package filings provides a thin typed wrapper over the Filings API and
// the day-by-day document search service built on top of it.
package filings

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/internal/common"
	"github.com/tak-akashi/company-research-agent/internal/services/substrate"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// ListType selects the list-documents endpoint's level of detail.
type ListType int

const (
	ListTypeCountOnly  ListType = 1
	ListTypeFullDetail ListType = 2
)

type rawListResponse struct {
	Metadata struct {
		Title     string          `json:"title"`
		Parameter json.RawMessage `json:"parameter"`
		Resultset struct {
			Count int `json:"count"`
		} `json:"resultset"`
		ProcessDateTime string `json:"processDateTime"`
		Status          string `json:"status"`
		Message         string `json:"message"`
	} `json:"metadata"`
	Results []models.RawFilingMetadata `json:"results,omitempty"`
}

// ListResponse is the normalized result of a list-documents call: flags in
// each result have already been converted from "0"/"1" strings to bool.
type ListResponse struct {
	Title           string
	ResultsetCount  int
	ProcessDateTime string
	Status          string
	Message         string
	Results         []models.FilingMetadata
}

// Client is a thin typed wrapper over the Filings API base URL. The API key
// always travels as a query parameter the client injects itself; callers
// never see or supply it directly.
type Client struct {
	baseURL         string
	apiKey          string
	listClient      *http.Client
	downloadClient  *http.Client
	rateLimiter     *substrate.RateLimiter
	retryPolicy     *substrate.RetryPolicy
	logger          arbor.ILogger
}

// NewClient builds a Filings API client from configuration.
func NewClient(cfg common.FilingsConfig, logger arbor.ILogger) *Client {
	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		listClient:     &http.Client{Timeout: cfg.ListTimeout},
		downloadClient: &http.Client{Timeout: cfg.DownloadTimeout},
		rateLimiter:    substrate.NewRateLimiter(1 * time.Second),
		retryPolicy:    substrate.NewRetryPolicy(),
		logger:         logger,
	}
}

func (c *Client) withAPIKey(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	q.Set("Subscription-Key", c.apiKey)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// ListDocuments calls the list-documents endpoint for a single date.
// listType=1 returns only the result count; listType=2 returns full
// per-document metadata, already boolean-normalized.
func (c *Client) ListDocuments(ctx context.Context, date string, listType ListType) (*ListResponse, error) {
	endpoint := c.baseURL + "/documents.json"
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAPIServer, err, "invalid filings base URL")
	}
	q := parsed.Query()
	q.Set("date", date)
	q.Set("type", strconv.Itoa(int(listType)))
	parsed.RawQuery = q.Encode()

	target, err := c.withAPIKey(parsed.String())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAPIServer, err, "invalid filings request URL")
	}

	var result *ListResponse
	_, err = substrate.ExecuteWithRetry(ctx, c.logger, c.retryPolicy, func() (int, error) {
		c.rateLimiter.Wait()

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if reqErr != nil {
			return 0, reqErr
		}
		resp, doErr := c.listClient.Do(req)
		if doErr != nil {
			return 0, doErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return resp.StatusCode, readErr
		}

		if statusErr := CheckStatus(resp, body, false); statusErr != nil {
			return resp.StatusCode, statusErr
		}

		var raw rawListResponse
		if unmarshalErr := json.Unmarshal(body, &raw); unmarshalErr != nil {
			return resp.StatusCode, apperrors.Wrap(apperrors.KindParse, unmarshalErr, "failed to parse list-documents response")
		}

		normalized := make([]models.FilingMetadata, 0, len(raw.Results))
		for _, r := range raw.Results {
			normalized = append(normalized, r.Normalize())
		}

		result = &ListResponse{
			Title:           raw.Metadata.Title,
			ResultsetCount:  raw.Metadata.Resultset.Count,
			ProcessDateTime: raw.Metadata.ProcessDateTime,
			Status:          raw.Metadata.Status,
			Message:         raw.Metadata.Message,
			Results:         normalized,
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DownloadDocument downloads document docID's artifact of the given type,
// writing it atomically to destPath (parent directory created). A JSON
// response disguised as a 200 success is detected via content-type and
// mapped through the same status taxonomy as list-document errors.
func (c *Client) DownloadDocument(ctx context.Context, docID string, downloadType models.DownloadType, destPath string) error {
	endpoint := c.baseURL + "/documents/" + docID
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return apperrors.Wrap(apperrors.KindAPIServer, err, "invalid filings download URL")
	}
	q := parsed.Query()
	q.Set("type", strconv.Itoa(int(downloadType)))
	parsed.RawQuery = q.Encode()

	target, err := c.withAPIKey(parsed.String())
	if err != nil {
		return apperrors.Wrap(apperrors.KindAPIServer, err, "invalid filings request URL")
	}

	_, err = substrate.ExecuteWithRetry(ctx, c.logger, c.retryPolicy, func() (int, error) {
		c.rateLimiter.Wait()

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if reqErr != nil {
			return 0, reqErr
		}
		resp, doErr := c.downloadClient.Do(req)
		if doErr != nil {
			return 0, doErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return resp.StatusCode, readErr
		}

		if statusErr := CheckStatus(resp, body, true); statusErr != nil {
			return resp.StatusCode, statusErr
		}

		if writeErr := writeAtomic(destPath, body); writeErr != nil {
			return resp.StatusCode, apperrors.Wrap(apperrors.KindDocumentDownload, writeErr, "failed to write downloaded document")
		}
		return resp.StatusCode, nil
	})
	return err
}

func writeAtomic(destPath string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	tmp := destPath + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, destPath)
}
