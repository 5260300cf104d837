package iocache

import (
	"time"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetTrackerStore implements the CacheManager interface.
func (m *MockCacheManager) GetTrackerStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetDatasetStore implements the CacheManager interface.
func (m *MockCacheManager) GetDatasetStore() contract.DatasetStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.DatasetStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// MockDatasetStore is a mock implementation of DatasetStore for testing.
type MockDatasetStore struct {
	mock.Mock
}

var _ contract.DatasetStore = &MockDatasetStore{} // Compile-time check

// BeginRun implements the DatasetStore interface.
func (m *MockDatasetStore) BeginRun(project string, startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(project, startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the DatasetStore interface.
func (m *MockDatasetStore) EndRun(runID int64, endTime time.Time, totalReleases, totalTickets int) error {
	args := m.Called(runID, endTime, totalReleases, totalTickets)
	return args.Error(0)
}

// RecordSnapshot implements the DatasetStore interface.
func (m *MockDatasetStore) RecordSnapshot(runID int64, snapshot *schema.ReleaseSnapshot) error {
	args := m.Called(runID, snapshot)
	return args.Error(0)
}

// RecordTickets implements the DatasetStore interface.
func (m *MockDatasetStore) RecordTickets(runID int64, tickets []*schema.Ticket) error {
	args := m.Called(runID, tickets)
	return args.Error(0)
}

// RecordEvaluations implements the DatasetStore interface.
func (m *MockDatasetStore) RecordEvaluations(runID int64, records []schema.EvaluationRecord) error {
	args := m.Called(runID, records)
	return args.Error(0)
}

// GetStatus implements the DatasetStore interface.
func (m *MockDatasetStore) GetStatus() (schema.DatasetStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.DatasetStatus), args.Error(1)
}

// GetAllRuns implements the DatasetStore interface.
func (m *MockDatasetStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	rows, _ := args.Get(0).([]schema.RunRecord)
	return rows, args.Error(1)
}

// GetAllFileMetrics implements the DatasetStore interface.
func (m *MockDatasetStore) GetAllFileMetrics() ([]schema.FileMetricRecord, error) {
	args := m.Called()
	rows, _ := args.Get(0).([]schema.FileMetricRecord)
	return rows, args.Error(1)
}

// GetAllTickets implements the DatasetStore interface.
func (m *MockDatasetStore) GetAllTickets() ([]schema.TicketRecord, error) {
	args := m.Called()
	rows, _ := args.Get(0).([]schema.TicketRecord)
	return rows, args.Error(1)
}

// GetAllEvaluations implements the DatasetStore interface.
func (m *MockDatasetStore) GetAllEvaluations() ([]schema.EvaluationRow, error) {
	args := m.Called()
	rows, _ := args.Get(0).([]schema.EvaluationRow)
	return rows, args.Error(1)
}

// Close implements the DatasetStore interface.
func (m *MockDatasetStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
