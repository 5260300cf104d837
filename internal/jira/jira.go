// Package jira fetches project versions and fixed bug tickets from a JIRA server.
package jira

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
)

// ErrProjectNotFound is returned when the tracker does not know the project key.
var ErrProjectNotFound = errors.New("project not found")

const (
	cacheVersion = 1              // bump when the cached payload shape changes
	cacheTTL     = 24 * time.Hour // responses older than this are refetched

	timestampLayout = "2006-01-02T15:04:05.000-0700"
	searchFields    = "key,resolutiondate,versions,created"
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	PageSize       int
	Retries        int
	Timeout        time.Duration
	InitialBackoff time.Duration
	Cache          contract.CacheStore // optional
	HTTPClient     *http.Client        // optional
}

// Client implements contract.TrackerClient over the JIRA REST API v2.
type Client struct {
	baseURL        string
	pageSize       int
	retries        int
	initialBackoff time.Duration
	cache          contract.CacheStore
	http           *http.Client
	now            func() time.Time
}

var _ contract.TrackerClient = &Client{} // Compile-time check

// NewClient creates a JIRA client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = contract.DefaultPageSize
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = 1
	}
	initial := opts.InitialBackoff
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		pageSize:       pageSize,
		retries:        retries,
		initialBackoff: initial,
		cache:          opts.Cache,
		http:           httpClient,
		now:            time.Now,
	}
}

type versionJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"releaseDate"`
	Released    bool   `json:"released"`
}

type searchJSON struct {
	StartAt    int `json:"startAt"`
	MaxResults int `json:"maxResults"`
	Total      int `json:"total"`
	Issues     []struct {
		Key    string `json:"key"`
		Fields struct {
			Created        string        `json:"created"`
			ResolutionDate string        `json:"resolutiondate"`
			Versions       []versionJSON `json:"versions"`
		} `json:"fields"`
	} `json:"issues"`
}

// FetchVersions returns every version of a project. Versions without a
// release date are returned with HasDate unset.
func (c *Client) FetchVersions(ctx context.Context, project string) ([]schema.RawVersion, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/project/%s/versions", c.baseURL, url.PathEscape(project))

	var payload []versionJSON
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("fetch versions of %s: %w", project, err)
	}

	versions := make([]schema.RawVersion, 0, len(payload))
	for _, v := range payload {
		rv := schema.RawVersion{ID: v.ID, Name: v.Name, Released: v.Released}
		if v.ReleaseDate != "" {
			date, err := time.Parse(time.DateOnly, v.ReleaseDate)
			if err != nil {
				return nil, fmt.Errorf("version %s of %s: invalid release date %q: %w", v.Name, project, v.ReleaseDate, err)
			}
			rv.Date = date
			rv.HasDate = true
		}
		versions = append(versions, rv)
	}
	return versions, nil
}

// SearchJQL returns the query selecting fixed bugs of a project.
func SearchJQL(project string) string {
	return fmt.Sprintf(`project="%s" AND issueType="Bug" AND (status="closed" OR status="resolved") AND resolution="fixed"`, project)
}

// FetchTickets pages through the search endpoint until every fixed bug is drained.
func (c *Client) FetchTickets(ctx context.Context, project string) ([]schema.RawTicket, error) {
	var tickets []schema.RawTicket
	for startAt := 0; ; {
		q := url.Values{}
		q.Set("jql", SearchJQL(project))
		q.Set("fields", searchFields)
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(c.pageSize))
		endpoint := c.baseURL + "/rest/api/2/search?" + q.Encode()

		var page searchJSON
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("fetch tickets of %s at %d: %w", project, startAt, err)
		}
		for _, issue := range page.Issues {
			rt, err := toRawTicket(issue.Key, issue.Fields.Created, issue.Fields.ResolutionDate, issue.Fields.Versions)
			if err != nil {
				return nil, err
			}
			tickets = append(tickets, rt)
		}

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}
	return tickets, nil
}

func toRawTicket(key, created, resolved string, versions []versionJSON) (schema.RawTicket, error) {
	rt := schema.RawTicket{Key: key}
	var err error
	if rt.Created, err = time.Parse(timestampLayout, created); err != nil {
		return rt, fmt.Errorf("ticket %s: invalid created %q: %w", key, created, err)
	}
	if rt.Resolved, err = time.Parse(timestampLayout, resolved); err != nil {
		return rt, fmt.Errorf("ticket %s: invalid resolutiondate %q: %w", key, resolved, err)
	}
	for _, v := range versions {
		if v.ReleaseDate != "" && v.ID != "" {
			rt.AffectedVersions = append(rt.AffectedVersions, v.ID)
		}
	}
	return rt, nil
}

// CacheKey returns the cache key of a request URL.
func CacheKey(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return "jira:" + hex.EncodeToString(sum[:])
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// fetch returns a fresh cached body or performs the request with retries.
func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	key := CacheKey(endpoint)
	if c.cache != nil {
		if data, version, ts, err := c.cache.Get(key); err == nil && version == cacheVersion &&
			c.now().Sub(time.Unix(ts, 0)) < cacheTTL {
			return data, nil
		}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialBackoff
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.do(ctx, endpoint)
	}, backoff.WithBackOff(exp), backoff.WithMaxTries(uint(c.retries)))
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(key, body, cacheVersion, c.now().Unix()); err != nil {
			contract.LogWarn("Error caching tracker response", err)
		}
	}
	return body, nil
}

// do performs one request. Client errors other than 429 are permanent.
func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(ErrProjectNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			return nil, backoff.RetryAfter(secs)
		}
		return nil, fmt.Errorf("GET %s: %s", endpoint, resp.Status)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, backoff.Permanent(fmt.Errorf("GET %s: %s", endpoint, resp.Status))
	default:
		return nil, fmt.Errorf("GET %s: %s", endpoint, resp.Status)
	}
}
