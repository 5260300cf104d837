package iocache

import (
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
)

// trackerTable is the name of the table for tracker response caching.
const trackerTable = "tracker_cache"

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetDBFilePath returns the path to the SQLite DB file for cache storage.
func GetDBFilePath() string {
	return contract.GetCacheDBFilePath()
}

// GetStoreDBFilePath returns the path to the SQLite DB file for dataset storage.
func GetStoreDBFilePath() string {
	return contract.GetStoreDBFilePath()
}

// InitStores initializes the global manager with the tracker cache and the dataset store.
// An empty backend leaves the corresponding store uninitialized.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, storeBackend schema.DatabaseBackend, storeConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var err error

		var trackerStore contract.CacheStore
		if cacheBackend != "" {
			trackerStore, err = NewCacheStore(trackerTable, cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize tracker caching: %w", err)
				return
			}
		}

		var datasetStore contract.DatasetStore
		if storeBackend != "" {
			datasetStore, err = NewDatasetStore(storeBackend, storeConnStr)
			if err != nil {
				if trackerStore != nil {
					_ = trackerStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize dataset store: %w", err)
				return
			}
		}

		Manager.Lock()
		Manager.tracker = trackerStore
		Manager.dataset = datasetStore
		Manager.Unlock()
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.tracker != nil {
			_ = Manager.tracker.Close()
		}
		if Manager.dataset != nil {
			_ = Manager.dataset.Close()
		}
	})
}

// ClearCache clears the tracker cache for the specified backend.
// For SQLite, it deletes the database file.
// For MySQL and PostgreSQL, it drops the table.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, trackerTable)
}

// ClearStore clears the dataset store for the specified backend.
func ClearStore(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	tables := append([]string{migrationsTable}, datasetTables...)
	return clearBackend(backend, dbFilePath, connStr, tables...)
}

func clearBackend(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTables(backend, connStr, tables...)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}
