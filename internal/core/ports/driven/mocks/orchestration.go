package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// WorkflowCall records one call made to MockWorkflowEngine
type WorkflowCall struct {
	Action     domain.WorkflowAction
	Kind       domain.WorkflowKind
	ID         string // sync id for start, target id for terminate
	WorkflowID string
}

// MockWorkflowEngine records start and terminate requests.
// StartFn and TerminateFn may return errors or panic to simulate engine faults.
type MockWorkflowEngine struct {
	mu    sync.Mutex
	calls []WorkflowCall

	StartFn     func(kind domain.WorkflowKind, syncID, workflowID string) error
	TerminateFn func(kind domain.WorkflowKind, targetID, workflowID string) error
}

// NewMockWorkflowEngine creates a new MockWorkflowEngine
func NewMockWorkflowEngine() *MockWorkflowEngine {
	return &MockWorkflowEngine{}
}

func (m *MockWorkflowEngine) Start(ctx context.Context, kind domain.WorkflowKind, syncID string, workflowID string) error {
	m.record(WorkflowCall{Action: domain.WorkflowActionStart, Kind: kind, ID: syncID, WorkflowID: workflowID})
	if m.StartFn != nil {
		return m.StartFn(kind, syncID, workflowID)
	}
	return nil
}

func (m *MockWorkflowEngine) Terminate(ctx context.Context, kind domain.WorkflowKind, targetID string, workflowID string) error {
	m.record(WorkflowCall{Action: domain.WorkflowActionTerminate, Kind: kind, ID: targetID, WorkflowID: workflowID})
	if m.TerminateFn != nil {
		return m.TerminateFn(kind, targetID, workflowID)
	}
	return nil
}

func (m *MockWorkflowEngine) record(call WorkflowCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns a copy of all recorded calls in order
func (m *MockWorkflowEngine) Calls() []WorkflowCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WorkflowCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsOf returns the recorded calls of one action
func (m *MockWorkflowEngine) CallsOf(action domain.WorkflowAction) []WorkflowCall {
	var out []WorkflowCall
	for _, c := range m.Calls() {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears recorded calls
func (m *MockWorkflowEngine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// MockExecutionEngine records descriptors and returns ExecuteFn's result,
// or a successful empty result.
type MockExecutionEngine struct {
	mu          sync.Mutex
	descriptors []*domain.ExecutionDescriptor

	ExecuteFn func(d *domain.ExecutionDescriptor) (*domain.ExecutionResult, error)
}

func (m *MockExecutionEngine) Execute(ctx context.Context, d *domain.ExecutionDescriptor) (*domain.ExecutionResult, error) {
	m.mu.Lock()
	m.descriptors = append(m.descriptors, d)
	m.mu.Unlock()
	if m.ExecuteFn != nil {
		return m.ExecuteFn(d)
	}
	return &domain.ExecutionResult{Success: true}, nil
}

// Descriptors returns the descriptors received so far
func (m *MockExecutionEngine) Descriptors() []*domain.ExecutionDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ExecutionDescriptor, len(m.descriptors))
	copy(out, m.descriptors)
	return out
}

// Report is one recorded failure report
type Report struct {
	Err   error
	Attrs map[string]string
}

// MockErrorReporter collects reports in memory
type MockErrorReporter struct {
	mu      sync.Mutex
	reports []Report
}

func (m *MockErrorReporter) Report(ctx context.Context, err error, attrs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, Report{Err: err, Attrs: attrs})
}

// Reports returns a copy of the collected reports
func (m *MockErrorReporter) Reports() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Report, len(m.reports))
	copy(out, m.reports)
	return out
}
