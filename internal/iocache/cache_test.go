package iocache

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/defectset/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func TestCacheStoreSQLite(t *testing.T) {
	store, err := NewCacheStore("test_cache", schema.SQLiteBackend, tempDB(t, "cache.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, _, _, err = store.Get("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, store.Set("k", []byte("v1"), 1, 100))
	require.NoError(t, store.Set("k", []byte("v2"), 2, 200))
	require.NoError(t, store.Set("other", []byte("x"), 1, 50))

	value, version, ts, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value)
	assert.Equal(t, 2, version)
	assert.Equal(t, int64(200), ts)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, time.Unix(200, 0), status.LastEntryTime)
	assert.Equal(t, time.Unix(50, 0), status.OldestEntryTime)
	assert.Positive(t, status.TableSizeBytes)
}

func TestCacheStoreNoneBackend(t *testing.T) {
	store, err := NewCacheStore("test_table", schema.NoneBackend, "")
	require.NoError(t, err)

	_, _, _, err = store.Get("test_key")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, store.Set("test_key", []byte("test_value"), 1, 123456789))
	_, _, _, err = store.Get("test_key")
	assert.Error(t, err)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestCacheStoreRejectsBadTable(t *testing.T) {
	_, err := NewCacheStore("bad-table", schema.SQLiteBackend, tempDB(t, "cache.db"))
	assert.Error(t, err)
}

func TestInitStores(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
		Manager = &StoreManager{}

		err := InitStores(schema.SQLiteBackend, tempDB(t, "cache.db"), schema.SQLiteBackend, tempDB(t, "store.db"))
		require.NoError(t, err)
		assert.NotNil(t, Manager.GetTrackerStore())
		assert.NotNil(t, Manager.GetDatasetStore())

		// Later calls are no-ops.
		assert.NoError(t, InitStores(schema.NoneBackend, "", schema.NoneBackend, ""))
		CloseStores()
		CloseStores()
	})

	t.Run("empty backends", func(t *testing.T) {
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
		Manager = &StoreManager{}

		require.NoError(t, InitStores("", "", "", ""))
		assert.Nil(t, Manager.GetTrackerStore())
		assert.Nil(t, Manager.GetDatasetStore())
		CloseStores()
	})
}

func TestClearCache(t *testing.T) {
	path := tempDB(t, "cache.db")
	store, err := NewCacheStore(trackerTable, schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.FileExists(t, path)
	require.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
	assert.NoFileExists(t, path)

	// Missing files are fine.
	assert.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
	assert.NoError(t, ClearStore(schema.NoneBackend, "", ""))
	assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	assert.Error(t, ClearStore("bogus", "", ""))
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
		wantErr   bool
	}{
		{"valid simple name", "test_table", false},
		{"valid name with numbers", "test_table_123", false},
		{"valid name starting with underscore", "_test_table", false},
		{"valid mixed case", "TestTable_123", false},
		{"empty name", "", true},
		{"starts with number", "123_table", true},
		{"contains dash", "test-table", true},
		{"contains space", "test table", true},
		{"sql injection attempt", "test'; DROP TABLE users; --", true},
		{"contains dot", "test.table", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.tableName)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteTableName(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		want    string
	}{
		{schema.SQLiteBackend, `"runs"`},
		{schema.MySQLBackend, "`runs`"},
		{schema.PostgreSQLBackend, `"runs"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			assert.Equal(t, tt.want, quoteTableName("runs", tt.backend))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", placeholders(schema.SQLiteBackend, 3))
	assert.Equal(t, "?", placeholders(schema.MySQLBackend, 1))
	assert.Equal(t, "$1, $2, $3", placeholders(schema.PostgreSQLBackend, 3))
}

func TestDriverFor(t *testing.T) {
	name, err := driverFor(schema.PostgreSQLBackend)
	require.NoError(t, err)
	assert.Equal(t, "pgx", name)
	_, err = driverFor(schema.NoneBackend)
	assert.Error(t, err)
}

func TestTimeScanner(t *testing.T) {
	ts := timeScanner{backend: schema.SQLiteBackend}
	ts.text = sql.NullString{String: "2024-03-01T10:00:00Z", Valid: true}
	got, err := ts.value()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), *got)

	ts.text = sql.NullString{String: "not a time", Valid: true}
	_, err = ts.value()
	assert.Error(t, err)

	null := timeScanner{backend: schema.PostgreSQLBackend}
	got, err = null.value()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "sqlite", Connected: true, TotalEntries: 1200, TableSizeBytes: 4096,
		LastEntryTime: time.Now(), OldestEntryTime: time.Now()})
	assert.Contains(t, buf.String(), "Total Entries: 1,200")
	assert.Contains(t, buf.String(), "Table Size: 4.1 kB")

	buf.Reset()
	PrintStoreStatus(&buf, schema.DatasetStatus{Backend: "none"})
	assert.Equal(t, "Store Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	PrintStoreStatus(&buf, schema.DatasetStatus{Backend: "sqlite", Connected: true, TableSizes: map[string]int64{"b": 2, "a": 1}})
	assert.Contains(t, buf.String(), "  a: 1 rows\n  b: 2 rows\n")
}
