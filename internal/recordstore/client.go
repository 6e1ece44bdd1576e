package recordstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/dgallion1/resumex/internal/extract"
)

// KeyPrefix is the path under which records are stored.
const KeyPrefix = "resumes"

// Client talks to a key/value HTTP store that keeps finished records.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StoredRecord is the value written at resumes/{doc_id}.
type StoredRecord struct {
	DocID    string         `json:"doc_id"`
	Source   string         `json:"source"`
	Record   extract.Record `json:"record"`
	Warnings []string       `json:"warnings,omitempty"`
	Missing  []string       `json:"missing,omitempty"`
	Valid    bool           `json:"valid"`
	ParsedAt time.Time      `json:"parsed_at"`
}

type nodeRequest struct {
	Value  StoredRecord `json:"value"`
	Source string       `json:"source,omitempty"`
}

type nodeResponse struct {
	Key   string       `json:"key_path"`
	Value StoredRecord `json:"value"`
}

func recordKey(docID string) string {
	return KeyPrefix + "/" + url.PathEscape(docID)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

// StatusError is returned when the store answers with an unexpected status.
type StatusError struct {
	Op   string
	Key  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.Key, e.Code, e.Body)
}

// Temporary reports whether the request may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

func statusError(op, key string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{Op: op, Key: key, Code: resp.StatusCode, Body: string(respBody)}
}

// PutRecord stores or replaces the record for rec.DocID.
func (c *Client) PutRecord(ctx context.Context, rec StoredRecord) error {
	body, err := sonic.Marshal(nodeRequest{Value: rec, Source: rec.Source})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	key := recordKey(rec.DocID)
	req, err := c.newRequest(ctx, http.MethodPut, "/kv/"+key, bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("put record", key, resp)
	}
	return nil
}

// GetRecord fetches a record. A missing record returns nil without error.
func (c *Client) GetRecord(ctx context.Context, docID string) (*StoredRecord, error) {
	key := recordKey(docID)
	req, err := c.newRequest(ctx, http.MethodGet, "/kv/"+key, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("get record", key, resp)
	}

	var node nodeResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &node.Value, nil
}

// DeleteRecord removes a record. Deleting a missing record is not an error.
func (c *Client) DeleteRecord(ctx context.Context, docID string) error {
	key := recordKey(docID)
	req, err := c.newRequest(ctx, http.MethodDelete, "/kv/"+key, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError("delete record", key, resp)
}

// ListRecords scans the record prefix. A limit of 0 leaves paging to the store.
func (c *Client) ListRecords(ctx context.Context, limit int) ([]StoredRecord, error) {
	path := "/kv/" + KeyPrefix + "/*"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list records", KeyPrefix, resp)
	}

	var result struct {
		Nodes []nodeResponse `json:"nodes"`
	}
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	out := make([]StoredRecord, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		out = append(out, n.Value)
	}
	return out, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
