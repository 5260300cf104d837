package contract

import (
	"context"

	"github.com/huangsam/defectset/schema"
	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock type for the GitClient type.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	root, _ := ret.Get(0).(string)
	return root, ret.Error(1)
}

// ListCommits implements the GitClient interface.
func (m *MockGitClient) ListCommits(ctx context.Context, repoPath string) ([]schema.Commit, error) {
	ret := m.Called(ctx, repoPath)
	commits, _ := ret.Get(0).([]schema.Commit)
	return commits, ret.Error(1)
}

// ListFiles implements the GitClient interface.
func (m *MockGitClient) ListFiles(ctx context.Context, repoPath string, commitID string) ([]string, error) {
	ret := m.Called(ctx, repoPath, commitID)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// ReadFile implements the GitClient interface.
func (m *MockGitClient) ReadFile(ctx context.Context, repoPath string, commitID string, path string) (string, error) {
	ret := m.Called(ctx, repoPath, commitID, path)
	content, _ := ret.Get(0).(string)
	return content, ret.Error(1)
}

// DiffWithParent implements the GitClient interface.
func (m *MockGitClient) DiffWithParent(ctx context.Context, repoPath string, commit schema.Commit) (schema.CommitChange, error) {
	ret := m.Called(ctx, repoPath, commit)
	change, _ := ret.Get(0).(schema.CommitChange)
	return change, ret.Error(1)
}

// MockTrackerClient is a mock type for the TrackerClient type.
type MockTrackerClient struct {
	mock.Mock
}

var _ TrackerClient = &MockTrackerClient{} // Compile-time check

// FetchVersions implements the TrackerClient interface.
func (m *MockTrackerClient) FetchVersions(ctx context.Context, project string) ([]schema.RawVersion, error) {
	ret := m.Called(ctx, project)
	versions, _ := ret.Get(0).([]schema.RawVersion)
	return versions, ret.Error(1)
}

// FetchTickets implements the TrackerClient interface.
func (m *MockTrackerClient) FetchTickets(ctx context.Context, project string) ([]schema.RawTicket, error) {
	ret := m.Called(ctx, project)
	tickets, _ := ret.Get(0).([]schema.RawTicket)
	return tickets, ret.Error(1)
}

// MockEvaluator is a mock type for the Evaluator type.
type MockEvaluator struct {
	mock.Mock
}

var _ Evaluator = &MockEvaluator{} // Compile-time check

// Evaluate implements the Evaluator interface.
func (m *MockEvaluator) Evaluate(ctx context.Context, req schema.EvaluationRequest) ([]schema.EvaluationRecord, error) {
	ret := m.Called(ctx, req)
	records, _ := ret.Get(0).([]schema.EvaluationRecord)
	return records, ret.Error(1)
}
