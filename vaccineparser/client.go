package vaccineparser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giygas/vaccination-book-api/interfaces"
	"github.com/giygas/vaccination-book-api/logging"
	"github.com/giygas/vaccination-book-api/metrics"
	"github.com/giygas/vaccination-book-api/vaccineparser/entities"
	"github.com/google/uuid"
)

// ErrNoChildID is returned without contacting upstream when no child is selected
var ErrNoChildID = errors.New("no child id")

// UpstreamError is a non-2xx answer from the child health API
type UpstreamError struct {
	StatusCode int
	ChildID    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d for child %s", e.StatusCode, e.ChildID)
}

const childIDPlaceholder = "{childId}"

// Client reads vaccine profiles from the upstream child health API
type Client struct {
	baseURL     string
	profilePath string
	maxBodySize int64
	httpClient  *http.Client
}

var _ interfaces.RecordSource = (*Client)(nil)

// NewClient creates a client for baseURL. profilePath must contain the {childId} placeholder.
func NewClient(baseURL, profilePath string, timeout time.Duration, maxBodySize int64) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		profilePath: profilePath,
		maxBodySize: maxBodySize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// profileURL builds the request URL for childID
func (c *Client) profileURL(childID string) string {
	return c.baseURL + strings.ReplaceAll(c.profilePath, childIDPlaceholder, url.PathEscape(childID))
}

// FetchRecords performs one GET for the child's vaccine profile and decodes it.
// There is no retry; the caller decides whether to refetch.
func (c *Client) FetchRecords(ctx context.Context, childID string) ([]entities.RawDoseRecord, error) {
	if childID == "" {
		return nil, ErrNoChildID
	}

	start := time.Now()
	records, err := c.fetch(ctx, childID)
	metrics.VaccineFetchDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.VaccineFetchTotal.WithLabelValues(outcome).Inc()

	return records, err
}

func (c *Client) fetch(ctx context.Context, childID string) ([]entities.RawDoseRecord, error) {
	requestID := uuid.NewString()
	target := c.profileURL(childID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for child %s: %w", childID, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	logging.Debug("Fetching vaccine profile", "child_id", childID, "request_id", requestID)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vaccine profile for child %s: %w", childID, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		// Drain a bit so the connection can be reused
		_, _ = io.CopyN(io.Discard, response.Body, 4096)
		logging.Warn("Upstream rejected vaccine profile request",
			"child_id", childID, "status", response.StatusCode, "request_id", requestID)
		return nil, &UpstreamError{StatusCode: response.StatusCode, ChildID: childID}
	}

	if response.StatusCode == http.StatusNoContent {
		return []entities.RawDoseRecord{}, nil
	}

	body, err := readCapped(response.Body, c.maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("failed to read vaccine profile for child %s: %w", childID, err)
	}

	records, err := DecodeRecords(body)
	if err != nil {
		logging.Warn("Upstream payload is not a record list",
			"child_id", childID, "request_id", requestID, "error", err)
		return nil, err
	}

	logging.Debug("Vaccine profile fetched",
		"child_id", childID, "request_id", requestID, "records", len(records))
	return records, nil
}

// readCapped reads at most limit bytes and fails if the body is longer
func readCapped(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return body, nil
}
