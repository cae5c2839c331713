package nvcparser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/logging"
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
	"golang.org/x/text/encoding/charmap"
)

// Compile-time check to ensure Fetcher implements the Fetcher interface
var _ interfaces.Fetcher = (*Fetcher)(nil)

// BundlePath is the API path of the NVC bundle, relative to the API root.
const BundlePath = "v1/Bundle/NVC"

// ErrUnexpectedStatus is returned when the API answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Fetcher downloads the NVC bundle.
type Fetcher struct {
	client   *retryablehttp.Client
	endpoint string
	appDesc  string
}

// NewFetcher creates a fetcher for apiURL. retries is the number of extra
// attempts made on connection errors and retryable statuses; 0 disables them.
func NewFetcher(apiURL, appDesc string, timeout time.Duration, retries int) (*Fetcher, error) {
	endpoint, err := url.JoinPath(apiURL, BundlePath)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", apiURL, err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient = &http.Client{
		Timeout: timeout,
	}
	client.Logger = slog.Default()
	// Hand the last response back instead of a generic "giving up" error so
	// that the status check below reports what the API answered.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Fetcher{
		client:   client,
		endpoint: endpoint,
		appDesc:  appDesc,
	}, nil
}

// Endpoint returns the full bundle URL.
func (f *Fetcher) Endpoint() string {
	return f.endpoint
}

// Fetch downloads and decodes the bundle.
func (f *Fetcher) Fetch(ctx context.Context) (*entities.Bundle, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json+fhir")
	req.Header.Set("x-app-desc", f.appDesc)

	response, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", f.endpoint, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, f.endpoint, response.Status)
	}

	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	bundle, err := decodeBundle(bodyBytes)
	if err != nil {
		return nil, err
	}

	logging.Debug(fmt.Sprintf("%s downloaded and parsed without errors", f.endpoint),
		"bytes", len(bodyBytes),
		"entries", len(bundle.Entry),
	)
	return bundle, nil
}

// decodeBundle parses a bundle body. Bodies that are not valid UTF-8 are
// decoded as ISO-8859-1 first.
func decodeBundle(body []byte) (*entities.Bundle, error) {
	if !utf8.Valid(body) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ISO-8859-1 body: %w", err)
		}
		logging.Warn("Bundle body is not valid UTF-8, decoded as ISO-8859-1")
		body = decoded
	}

	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))

	var bundle entities.Bundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse bundle JSON: %w", err)
	}
	return &bundle, nil
}
