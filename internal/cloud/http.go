package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nathanbeddoewebdev/promptsync/internal/history"
	"nathanbeddoewebdev/promptsync/internal/services/auth"
)

const (
	ProviderHTTP = "http"

	httpTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is read into the error.
	maxErrorBody = 4 << 10
)

// Compile-time check that HTTPStore satisfies Store.
var _ Store = (*HTTPStore)(nil)

// HTTPStore talks to a document server over JSON/HTTP with a bearer token.
// It performs exactly one request per call; retrying is the caller's job.
type HTTPStore struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewHTTPStore creates an HTTPStore for the server at endpoint.
func NewHTTPStore(endpoint, token string) *HTTPStore {
	return &HTTPStore{
		token:   token,
		baseURL: strings.TrimRight(endpoint, "/"),
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// RegisterHTTP registers the HTTP store factory with the cloud registry.
func RegisterHTTP() {
	Register(ProviderHTTP, func(endpoint string, store auth.Store) (Store, error) {
		if strings.TrimSpace(endpoint) == "" {
			return nil, fmt.Errorf("http store: no endpoint configured (run 'promptsync config set cloud-endpoint <url>')")
		}
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return nil, fmt.Errorf("http store: invalid endpoint %q: %w", endpoint, err)
		}
		token, err := store.GetToken(auth.CloudTokenKey)
		if err != nil {
			return nil, fmt.Errorf("http store: token not found (run 'promptsync auth login'): %w", err)
		}
		return NewHTTPStore(endpoint, token), nil
	})
}

func (s *HTTPStore) Name() string {
	return ProviderHTTP
}

// BatchUpsert posts the records as one batch. An empty batch sends nothing.
func (s *HTTPStore) BatchUpsert(ctx context.Context, records []history.ExecutionRecord) error {
	if len(records) == 0 {
		return nil
	}

	body := BatchUpsertRequest{Documents: make([]Document, 0, len(records))}
	for _, r := range records {
		body.Documents = append(body.Documents, NewDocument(r))
	}

	var out BatchUpsertResponse
	if err := s.doJSON(ctx, http.MethodPost, "/v1/collections/"+Collection+":batchUpsert", body, &out); err != nil {
		return fmt.Errorf("failed to upsert %d documents: %w", len(records), err)
	}
	if out.Upserted != len(records) {
		return fmt.Errorf("failed to upsert documents: remote accepted %d of %d", out.Upserted, len(records))
	}
	return nil
}

// GetUpdatesSince queries documents updated at or after since.
func (s *HTTPStore) GetUpdatesSince(ctx context.Context, since time.Time) ([]history.ExecutionRecord, error) {
	q := url.Values{}
	q.Set("updated_since", since.UTC().Format(time.RFC3339Nano))

	var out QueryResponse
	if err := s.doJSON(ctx, http.MethodGet, "/v1/collections/"+Collection+"?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to query updates: %w", err)
	}

	records := make([]history.ExecutionRecord, 0, len(out.Documents))
	for _, d := range out.Documents {
		records = append(records, d.Record())
	}
	return records, nil
}

// doJSON sends body as JSON and decodes a 2xx response into out. Non-2xx
// statuses are mapped to the package sentinels.
func (s *HTTPStore) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("http store: failed to encode request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("http store: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http store: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("http store: failed to decode response: %w", err)
	}
	return nil
}

// statusError maps an HTTP error response to a sentinel-wrapped error.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(raw))
	var errBody ErrorResponse
	if err := json.Unmarshal(raw, &errBody); err == nil && errBody.Error != "" {
		msg = errBody.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case resp.StatusCode >= 500:
		return &StatusError{Code: resp.StatusCode, Message: msg, err: ErrUnavailable}
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

// StatusError carries the HTTP status of a failed call.
type StatusError struct {
	Code    int
	Message string
	err     error
}

func (e *StatusError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%v: http %d: %s", e.err, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.err }

// IsTransient reports whether err is worth retrying later: rate limiting,
// server-side failures, and transport timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
