// Package supabase talks to a hosted Supabase project: PostgREST for rows and
// the Realtime websocket for change events.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// PostgREST error codes the repository reacts to.
const (
	CodeNoRows          = "PGRST116"
	CodeUniqueViolation = "23505"
)

// Error is a decoded PostgREST error response.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %s (%s, status %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("supabase: %s (status %d)", e.Message, e.StatusCode)
}

// IsCode reports whether err is a PostgREST error with the given code.
func IsCode(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func parseError(body []byte, statusCode int) error {
	apiErr := &Error{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(statusCode)
		}
	}
	return apiErr
}

type Client struct {
	http    *resty.Client
	baseURL string
	apiKey  string
}

// NewClient builds a client authenticated with the project's service role key.
func NewClient(projectURL, serviceKey string) *Client {
	baseURL := strings.TrimRight(projectURL, "/")

	httpClient := resty.New().
		SetBaseURL(baseURL+"/rest/v1").
		SetHeader("apikey", serviceKey).
		SetAuthToken(serviceKey).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only idempotent reads are retried
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: httpClient, baseURL: baseURL, apiKey: serviceKey}
}

// URL returns the project URL the client was built with.
func (c *Client) URL() string {
	return c.baseURL
}

// From starts a query on a table.
func (c *Client) From(table string) *Query {
	return &Query{
		client:  c,
		table:   table,
		method:  http.MethodGet,
		params:  url.Values{},
		headers: map[string]string{},
	}
}

// RPC calls a Postgres function and decodes its result into out.
func (c *Client) RPC(ctx context.Context, fn string, params, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(params).
		Post("/rpc/" + url.PathEscape(fn))
	if err != nil {
		return fmt.Errorf("rpc %s: %w", fn, err)
	}
	if resp.IsError() {
		return parseError(resp.Body(), resp.StatusCode())
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode rpc %s: %w", fn, err)
	}
	return nil
}

// Query is a PostgREST request builder.
type Query struct {
	client  *Client
	table   string
	method  string
	params  url.Values
	headers map[string]string
	prefer  []string
	body    any
	orders  []string
}

func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

func (q *Query) filter(column, op string, value any) *Query {
	q.params.Add(column, op+"."+formatValue(value))
	return q
}

func (q *Query) Eq(column string, value any) *Query  { return q.filter(column, "eq", value) }
func (q *Query) Neq(column string, value any) *Query { return q.filter(column, "neq", value) }
func (q *Query) Gt(column string, value any) *Query  { return q.filter(column, "gt", value) }
func (q *Query) Gte(column string, value any) *Query { return q.filter(column, "gte", value) }
func (q *Query) Lt(column string, value any) *Query  { return q.filter(column, "lt", value) }

func (q *Query) In(column string, values ...any) *Query {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	q.params.Add(column, "in.("+strings.Join(parts, ",")+")")
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", fmt.Sprint(n))
	return q
}

func (q *Query) Offset(n int) *Query {
	q.params.Set("offset", fmt.Sprint(n))
	return q
}

// Single asks for exactly one row; zero rows yield a CodeNoRows error.
func (q *Query) Single() *Query {
	q.headers["Accept"] = "application/vnd.pgrst.object+json"
	return q
}

func (q *Query) Insert(rows any) *Query {
	q.method = http.MethodPost
	q.body = rows
	q.prefer = append(q.prefer, "return=representation")
	return q
}

// Upsert merges on the given conflict columns.
func (q *Query) Upsert(rows any, onConflict string) *Query {
	q.method = http.MethodPost
	q.body = rows
	q.prefer = append(q.prefer, "return=representation", "resolution=merge-duplicates")
	if onConflict != "" {
		q.params.Set("on_conflict", onConflict)
	}
	return q
}

// InsertIgnore inserts rows, skipping those that conflict.
func (q *Query) InsertIgnore(rows any, onConflict string) *Query {
	q.method = http.MethodPost
	q.body = rows
	q.prefer = append(q.prefer, "return=representation", "resolution=ignore-duplicates")
	if onConflict != "" {
		q.params.Set("on_conflict", onConflict)
	}
	return q
}

func (q *Query) Update(fields any) *Query {
	q.method = http.MethodPatch
	q.body = fields
	q.prefer = append(q.prefer, "return=representation")
	return q
}

func (q *Query) Delete() *Query {
	q.method = http.MethodDelete
	q.prefer = append(q.prefer, "return=representation")
	return q
}

// Execute runs the request and decodes the response into out (may be nil).
func (q *Query) Execute(ctx context.Context, out any) error {
	if len(q.orders) > 0 {
		q.params.Set("order", strings.Join(q.orders, ","))
	}

	req := q.client.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(q.params).
		SetHeaders(q.headers)
	if len(q.prefer) > 0 {
		req.SetHeader("Prefer", strings.Join(q.prefer, ","))
	}
	if q.body != nil {
		req.SetBody(q.body)
	}

	resp, err := req.Execute(q.method, "/"+url.PathEscape(q.table))
	if err != nil {
		return fmt.Errorf("%s %s: %w", q.method, q.table, err)
	}
	if resp.IsError() {
		return parseError(resp.Body(), resp.StatusCode())
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", q.table, err)
	}
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
