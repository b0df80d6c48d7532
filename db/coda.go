package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/jpillora/backoff"
)

const codaBaseURL = "https://coda.io/apis/v1"

type CodaOptions struct {
	BaseURL     string
	APIToken    string
	DocID       string
	Tables      map[Kind]string
	HTTPClient  *http.Client
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// Coda stores records as rows of Coda tables, one table per kind.
type Coda struct {
	opts   CodaOptions
	client *http.Client
	log    log15.Logger
}

func NewCoda(opts CodaOptions, log log15.Logger) *Coda {
	if opts.BaseURL == "" {
		opts.BaseURL = codaBaseURL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 250 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Coda{opts: opts, client: client, log: log}
}

type codaCell struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

type codaRow struct {
	Cells []codaCell `json:"cells"`
}

type codaInsert struct {
	Rows       []codaRow `json:"rows"`
	KeyColumns []string  `json:"keyColumns,omitempty"`
}

type codaRowsPage struct {
	Items []struct {
		ID     string         `json:"id"`
		Values map[string]any `json:"values"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type codaColumnsPage struct {
	Items []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

func (c *Coda) table(kind Kind) (string, error) {
	if kind == KindQuick {
		kind = KindStandup
	}
	id := c.opts.Tables[kind]
	if id == "" {
		return "", fmt.Errorf("%w: no coda table configured for %s records", ErrStoreUnavailable, kind)
	}
	return id, nil
}

// Append inserts rec, upserting on the fingerprint column so a retried write
// does not duplicate the row.
func (c *Coda) Append(ctx context.Context, rec Record) error {
	table, err := c.table(rec.Kind)
	if err != nil {
		return err
	}

	var row codaRow
	cells := rec.Cells()
	for _, col := range ColumnsFor(rec.Kind) {
		row.Cells = append(row.Cells, codaCell{Column: col, Value: cells[col]})
	}
	body := codaInsert{Rows: []codaRow{row}}
	if rec.Fingerprint != "" {
		body.KeyColumns = []string{ColFingerprint}
	}

	path := fmt.Sprintf("/docs/%s/tables/%s/rows", url.PathEscape(c.opts.DocID), url.PathEscape(table))
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return fmt.Errorf("Append: failed to add %s row for user %s: %w", rec.Kind, rec.UserID, err)
	}
	return nil
}

func (c *Coda) Records(ctx context.Context, kind Kind) ([]Record, error) {
	table, err := c.table(kind)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/docs/%s/tables/%s/rows", url.PathEscape(c.opts.DocID), url.PathEscape(table))
	var out []Record
	token := ""
	for {
		q := url.Values{"useColumnNames": {"true"}, "valueFormat": {"simple"}, "limit": {"200"}}
		if token != "" {
			q.Set("pageToken", token)
		}
		var page codaRowsPage
		if err := c.do(ctx, http.MethodGet, path, q, nil, &page); err != nil {
			return nil, fmt.Errorf("Records: failed to list %s rows: %w", kind, err)
		}
		for _, item := range page.Items {
			cells := make(map[string]string, len(item.Values))
			for k, v := range item.Values {
				cells[k] = fmt.Sprint(v)
			}
			rec := RecordFromCells(kind, cells)
			rec.ID = item.ID
			if rec.Kind == kind {
				out = append(out, rec)
			}
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		token = page.NextPageToken
	}
}

func (c *Coda) Columns(ctx context.Context, kind Kind) ([]string, error) {
	table, err := c.table(kind)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/docs/%s/tables/%s/columns", url.PathEscape(c.opts.DocID), url.PathEscape(table))
	var names []string
	token := ""
	for {
		var q url.Values
		if token != "" {
			q = url.Values{"pageToken": {token}}
		}
		var page codaColumnsPage
		if err := c.do(ctx, http.MethodGet, path, q, nil, &page); err != nil {
			return nil, fmt.Errorf("Columns: failed to list %s columns: %w", kind, err)
		}
		for _, col := range page.Items {
			names = append(names, col.Name)
		}
		if page.NextPageToken == "" {
			return names, nil
		}
		token = page.NextPageToken
	}
}

// do sends one API call, retrying transport errors, 429 and 5xx with backoff.
func (c *Coda) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return err
		}
	}
	target := c.opts.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	b := &backoff.Backoff{Min: c.opts.MinBackoff, Max: c.opts.MaxBackoff, Factor: 2, Jitter: true}
	for attempt := 1; ; attempt++ {
		retry, err := c.once(ctx, method, target, payload, out)
		if err == nil {
			return nil
		}
		if !retry || attempt >= c.opts.MaxAttempts {
			return err
		}

		wait := b.Duration()
		c.log.Warn("Coda request failed, retrying", "method", method, "path", path, "attempt", attempt, "wait", wait, "err", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, ctx.Err())
		case <-time.After(wait):
		}
	}
}

func (c *Coda) once(ctx context.Context, method, target string, payload []byte, out any) (retry bool, err error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retry = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retry, fmt.Errorf("%w: coda %s returned %d: %s", ErrStoreUnavailable, method, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode coda response: %w", err)
	}
	return false, nil
}
