// FilePath: internal/remote/supabase/supabase.rest.go
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/go-resty/resty/v2"
)

// restClient speaks PostgREST, the REST face of the hosted database.
type restClient struct {
	client *resty.Client
}

func newRESTClient(baseURL, key, schema string, timeout time.Duration) *restClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/rest/v1").
		SetTimeout(timeout).
		SetHeader("apikey", key).
		SetAuthToken(key).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Profile", schema).
		SetHeader("Content-Profile", schema)
	return &restClient{client: client}
}

func (c *restClient) query(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	params, err := queryParams(q)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get("/" + q.Table)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("query %s: %s: %s", q.Table, resp.Status(), bytes.TrimSpace(resp.Body()))
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	var rows []remote.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", q.Table, err)
	}
	return rows, nil
}

func (c *restClient) insert(ctx context.Context, table string, row remote.Row) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=minimal").
		SetBody(row).
		Post("/" + table)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	if resp.IsError() {
		return fmt.Errorf("insert into %s: %s: %s", table, resp.Status(), bytes.TrimSpace(resp.Body()))
	}
	return nil
}

// queryParams renders q in PostgREST's horizontal filtering syntax.
func queryParams(q remote.Query) (url.Values, error) {
	if q.Table == "" {
		return nil, fmt.Errorf("query without table")
	}

	params := url.Values{}
	if len(q.Columns) > 0 {
		params.Set("select", strings.Join(q.Columns, ","))
	} else {
		params.Set("select", "*")
	}
	for _, f := range q.Filters {
		switch f.Op {
		case remote.OpEq, remote.OpGte:
		default:
			return nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		params.Add(f.Column, fmt.Sprintf("%s.%s", f.Op, formatValue(f.Value)))
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params, nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
