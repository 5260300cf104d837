package iocache

import (
	"sync"

	"github.com/huangsam/defectset/internal/contract"
)

// StoreManager manages the tracker cache and the dataset store.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	tracker      contract.CacheStore
	dataset      contract.DatasetStore
}

var _ contract.CacheManager = &StoreManager{} // Compile-time check

// GetTrackerStore returns the CacheStore holding tracker responses.
func (mgr *StoreManager) GetTrackerStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.tracker
}

// GetDatasetStore returns the DatasetStore holding build runs.
func (mgr *StoreManager) GetDatasetStore() contract.DatasetStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.dataset
}
