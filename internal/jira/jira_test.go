package jira

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/defectset/internal/iocache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, opts ...func(*Options)) *Client {
	o := Options{BaseURL: url, PageSize: 2, Retries: 3, InitialBackoff: time.Millisecond}
	for _, fn := range opts {
		fn(&o)
	}
	return NewClient(o)
}

func TestFetchVersions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/project/PROJ/versions", r.URL.Path)
		_, _ = fmt.Fprint(w, `[
			{"id":"1","name":"1.0","releaseDate":"2020-01-01","released":true},
			{"id":"2","name":"2.0"},
			{"id":"3","name":"1.1","releaseDate":"2020-06-01","released":true}
		]`)
	}))
	defer srv.Close()

	versions, err := newTestClient(srv.URL).FetchVersions(context.Background(), "PROJ")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, "1.0", versions[0].Name)
	assert.True(t, versions[0].HasDate)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), versions[0].Date)
	assert.False(t, versions[1].HasDate)
	assert.Equal(t, "3", versions[2].ID)
}

func TestFetchVersionsBadDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `[{"id":"1","name":"1.0","releaseDate":"Jan 1"}]`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchVersions(context.Background(), "PROJ")
	assert.ErrorContains(t, err, "invalid release date")
}

type issue struct {
	key      string
	versions []string
}

func searchPage(startAt, total int, issues []issue) string {
	type version struct {
		ID          string `json:"id"`
		ReleaseDate string `json:"releaseDate,omitempty"`
	}
	type fields struct {
		Created        string    `json:"created"`
		ResolutionDate string    `json:"resolutiondate"`
		Versions       []version `json:"versions"`
	}
	type item struct {
		Key    string `json:"key"`
		Fields fields `json:"fields"`
	}
	items := make([]item, 0, len(issues))
	for _, is := range issues {
		var vs []version
		for _, id := range is.versions {
			vs = append(vs, version{ID: id, ReleaseDate: "2020-01-01"})
		}
		vs = append(vs, version{ID: "undated"})
		items = append(items, item{Key: is.key, Fields: fields{
			Created:        "2020-02-01T10:00:00.000+0000",
			ResolutionDate: "2020-03-01T12:30:00.000+0100",
			Versions:       vs,
		}})
	}
	out, _ := json.Marshal(map[string]any{"startAt": startAt, "maxResults": 2, "total": total, "issues": items})
	return string(out)
}

func TestFetchTicketsPages(t *testing.T) {
	pages := map[int]string{
		0: searchPage(0, 3, []issue{{"PROJ-1", []string{"1"}}, {"PROJ-2", nil}}),
		2: searchPage(2, 3, []issue{{"PROJ-3", []string{"1", "2"}}}),
	}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		assert.Equal(t, SearchJQL("PROJ"), q.Get("jql"))
		assert.Equal(t, "2", q.Get("maxResults"))
		start, _ := strconv.Atoi(q.Get("startAt"))
		_, _ = fmt.Fprint(w, pages[start])
	}))
	defer srv.Close()

	tickets, err := newTestClient(srv.URL).FetchTickets(context.Background(), "PROJ")
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "PROJ-1", tickets[0].Key)
	assert.Equal(t, []string{"1"}, tickets[0].AffectedVersions)
	assert.Empty(t, tickets[1].AffectedVersions)
	assert.Equal(t, []string{"1", "2"}, tickets[2].AffectedVersions)
	assert.Equal(t, time.Date(2020, 3, 1, 11, 30, 0, 0, time.UTC), tickets[0].Resolved.UTC())
}

func TestFetchTicketsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, searchPage(0, 0, nil))
	}))
	defer srv.Close()

	tickets, err := newTestClient(srv.URL).FetchTickets(context.Background(), "PROJ")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestRetries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   bool
	}{
		{"succeeds after server errors", []int{500, 503, 200}, 3, false},
		{"gives up after max tries", []int{500, 500, 500, 200}, 3, true},
		{"client errors are permanent", []int{400, 200}, 1, true},
		{"not found is permanent", []int{404, 200}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				w.WriteHeader(tt.statuses[n-1])
				_, _ = fmt.Fprint(w, `[]`)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).FetchVersions(context.Background(), "PROJ")
			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProjectNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchVersions(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv.URL).FetchVersions(ctx, "PROJ")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachedResponses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprint(w, `[{"id":"1","name":"1.0","releaseDate":"2020-01-01"}]`)
	}))
	defer srv.Close()

	store, err := iocache.NewCacheStore("tracker_cache", "sqlite", t.TempDir()+"/cache.db")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	client := newTestClient(srv.URL, func(o *Options) { o.Cache = store })
	for range 3 {
		versions, err := client.FetchVersions(context.Background(), "PROJ")
		require.NoError(t, err)
		require.Len(t, versions, 1)
	}
	assert.Equal(t, int32(1), calls.Load())

	// Stale entries are refetched.
	client.now = func() time.Time { return time.Now().Add(cacheTTL + time.Minute) }
	_, err = client.FetchVersions(context.Background(), "PROJ")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheVersionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	endpoint := srv.URL + "/rest/api/2/project/PROJ/versions"
	cache := &iocache.MockCacheStore{}
	cache.On("Get", CacheKey(endpoint)).Return([]byte(`[{"id":"old"}]`), cacheVersion+1, time.Now().Unix(), nil)
	cache.On("Set", CacheKey(endpoint), []byte(`[]`), cacheVersion, mock.AnythingOfType("int64")).Return(nil)

	client := newTestClient(srv.URL, func(o *Options) { o.Cache = cache })
	versions, err := client.FetchVersions(context.Background(), "PROJ")
	require.NoError(t, err)
	assert.Empty(t, versions)
	cache.AssertExpectations(t)
}

func TestCacheMissFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	cache := &iocache.MockCacheStore{}
	cache.On("Get", mock.Anything).Return(nil, 0, int64(0), sql.ErrNoRows)
	cache.On("Set", mock.Anything, mock.Anything, cacheVersion, mock.Anything).Return(nil)

	client := newTestClient(srv.URL, func(o *Options) { o.Cache = cache })
	_, err := client.FetchVersions(context.Background(), "PROJ")
	require.NoError(t, err)
	cache.AssertNumberOfCalls(t, "Set", 1)
}

func TestCacheKeyIsStable(t *testing.T) {
	assert.Equal(t, CacheKey("http://x/a"), CacheKey("http://x/a"))
	assert.NotEqual(t, CacheKey("http://x/a"), CacheKey("http://x/b"))
	assert.Len(t, CacheKey("http://x/a"), len("jira:")+64)
}
