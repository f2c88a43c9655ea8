// Package iocache persists API responses and lookup history in a SQL database.
package iocache

import (
	"sync"

	"github.com/huangsam/barriernavi/internal/contract"
)

// CacheStoreManager manages the response cache and history stores.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	response     contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetResponseStore returns the response CacheStore.
func (mgr *CacheStoreManager) GetResponseStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.response
}

// GetHistoryStore returns the lookup HistoryStore.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
