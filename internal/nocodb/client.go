// Package nocodb is a minimal typed client for the NocoDB table records API.
package nocodb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds every request so a slow remote cannot stall a chat
// dialog.
const DefaultTimeout = 10 * time.Second

// ErrUnavailable wraps timeouts and transport failures.
var ErrUnavailable = errors.New("nocodb: remote unavailable")

// StatusError wraps non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nocodb: status=%d body=%s", e.Code, e.Body)
}

// Client talks to a single NocoDB table. Construct with New; fields must not
// be mutated once the client is shared across goroutines.
type Client struct {
	BaseURL    string
	TableID    string
	Token      string
	HTTPClient *http.Client
}

// New creates a client with sane defaults.
func New(baseURL, tableID, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		TableID:    tableID,
		Token:      token,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// ListOptions narrow a records listing. Zero values are omitted from the
// query; Statuses builds a where clause.
type ListOptions struct {
	Limit    int
	Offset   int
	Statuses []string
}

// ListResult is a page of raw rows plus the table's total row count.
type ListResult struct {
	List  []map[string]any
	Total int
}

type listResponse struct {
	List     []map[string]any `json:"list"`
	PageInfo struct {
		TotalRows int `json:"totalRows"`
	} `json:"pageInfo"`
}

// ListRecords fetches one page of rows, optionally filtered by status.
func (c *Client) ListRecords(ctx context.Context, opts ListOptions) (ListResult, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if where := whereClause(opts.Statuses); where != "" {
		q.Set("where", where)
	}
	endpoint := c.recordsPath()
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return ListResult{}, err
	}
	return ListResult{List: resp.List, Total: resp.PageInfo.TotalRows}, nil
}

// InsertRecord creates a row and returns the remote's echo of it.
func (c *Client) InsertRecord(ctx context.Context, rec map[string]any) (map[string]any, error) {
	var created map[string]any
	if err := c.do(ctx, http.MethodPost, c.recordsPath(), rec, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// whereClause renders statuses in the NocoDB filter grammar:
// a single status as (status,eq,S), several as ((status,eq,S1),or,(status,eq,S2)).
func whereClause(statuses []string) string {
	switch len(statuses) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("(status,eq,%s)", statuses[0])
	default:
		parts := make([]string, len(statuses))
		for i, s := range statuses {
			parts[i] = fmt.Sprintf("(status,eq,%s)", s)
		}
		return "(" + strings.Join(parts, ",or,") + ")"
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	full := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, full, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("xc-token", c.Token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) recordsPath() string {
	return fmt.Sprintf("tables/%s/records", url.PathEscape(c.TableID))
}
