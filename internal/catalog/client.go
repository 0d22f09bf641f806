// Package catalog talks to the remote asset catalog: the JSON listing endpoint
// and the per-record detail endpoint. Records are fetched fresh on every call;
// nothing about the catalog is persisted locally.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const maxErrorBody = 512

// ErrNotFound is returned by Lookup when the catalog has no such record.
var ErrNotFound = errors.New("catalog record not found")

// StatusError reports a non-2xx response from the catalog.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("catalog %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("catalog %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client lists and looks up records under one base URL.
type Client struct {
	http     *http.Client
	base     *url.URL
	logger   *logrus.Logger
	timeout  time.Duration
	username string
	password string
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout bounds each catalog request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBasicAuth sends credentials with every catalog request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// NewClient builds a catalog client. base must be an absolute http(s) URL.
func NewClient(httpClient *http.Client, base *url.URL, logger *logrus.Logger, opts ...Option) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client is required")
	}
	if base == nil || base.Host == "" {
		return nil, errors.New("catalog base url is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	c := &Client{
		http:   httpClient,
		base:   base,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches one page of records: GET <base>?limit=N&type=T.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	target := *c.base
	query := target.Query()
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Type != "" {
		query.Set("type", opts.Type)
	}
	target.RawQuery = query.Encode()

	var body listing
	if err := c.getJSON(ctx, &target, &body); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"action":  "catalog_list",
		"url":     target.String(),
		"results": len(body.Results),
		"count":   body.Count,
	}).Debug("catalog listed")
	return body.Results, nil
}

// Lookup fetches a single record: GET <base>/<id>.
func (c *Client) Lookup(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, errors.New("record id is required")
	}
	target := c.base.JoinPath(url.PathEscape(id))

	var rec Record
	if err := c.getJSON(ctx, target, &rec); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return &rec, nil
}

func (c *Client) getJSON(ctx context.Context, target *url.URL, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{URL: target.String(), StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
