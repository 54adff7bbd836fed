// Package api talks to the remote profile service: the required profile
// record and the optional collectibles list.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://www.pekora.zip"
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// Config describes the remote endpoints.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client fetches records by account identifier. It holds no data between
// calls; concurrent identical profile requests share a single round trip.
type Client struct {
	base    *url.URL
	http    *http.Client
	log     *zap.Logger
	timeout time.Duration
	group   singleflight.Group
}

func New(cfg Config, hc *http.Client, log *zap.Logger) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", raw)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{base: base, http: hc, log: log, timeout: timeout}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) ProfileURL(id string) string {
	return c.endpoint("/apisite/users/v1/users/"+url.PathEscape(id), nil)
}

func (c *Client) CollectiblesURL(id string) string {
	return c.endpoint("/internal/collectibles", url.Values{"userId": {id}})
}

func (c *Client) AvatarURL(id string) string {
	return c.endpoint("/thumbs/avatar.ashx", url.Values{"userId": {id}})
}

// Profile fetches the account record. Failures are *NetworkError,
// *APIError or *DecodeError.
//
// The round trip is shared by concurrent callers and does not inherit any
// caller's cancellation; a caller that gives up only stops waiting.
func (c *Client) Profile(ctx context.Context, id string) (*Profile, error) {
	target := c.ProfileURL(id)
	ch := c.group.DoChan(target, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		var p Profile
		if err := c.getJSON(fetchCtx, target, &p); err != nil {
			return nil, err
		}
		return &p, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, &NetworkError{URL: target, Err: ctx.Err()}
	}
	if res.Shared {
		c.log.Debug("Shared profile fetch", zap.String("id", id))
	}
	if res.Err != nil {
		return nil, res.Err
	}
	p := *res.Val.(*Profile)
	if p.ID == "" {
		p.ID = ID(id)
	}
	p.AvatarURL = c.AvatarURL(string(p.ID))
	return &p, nil
}

// Collectibles fetches the inventory enrichment. Any failure yields
// (nil, false) and is only logged at debug level.
func (c *Client) Collectibles(ctx context.Context, id string) (*Collectibles, bool) {
	var out Collectibles
	if err := c.getJSON(ctx, c.CollectiblesURL(id), &out); err != nil {
		c.log.Debug("Collectibles unavailable", zap.String("id", id), zap.Error(err))
		return nil, false
	}
	return &out, true
}

func (c *Client) getJSON(ctx context.Context, target string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &NetworkError{URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &APIError{Status: resp.StatusCode, URL: target}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &NetworkError{URL: target, Err: err}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &DecodeError{URL: target, Err: err}
	}
	return nil
}

// IsAPIStatus reports whether err carries the given HTTP status.
func IsAPIStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
