// Package mocks provides in-memory implementations of the driven ports for tests.
package mocks

import "github.com/custodia-labs/sercha-sync/internal/core/ports/driven"

var (
	_ driven.SyncStore       = (*MockSyncStore)(nil)
	_ driven.SyncRunStore    = (*MockSyncRunStore)(nil)
	_ driven.CatalogStore    = (*MockCatalogStore)(nil)
	_ driven.ConnectorStore  = (*MockConnectorStore)(nil)
	_ driven.ModelStore      = (*MockModelStore)(nil)
	_ driven.WorkflowEngine  = (*MockWorkflowEngine)(nil)
	_ driven.ExecutionEngine = (*MockExecutionEngine)(nil)
	_ driven.ErrorReporter   = (*MockErrorReporter)(nil)
	_ driven.TaskQueue       = (*MockTaskQueue)(nil)
	_ driven.ScheduleStore   = (*MockScheduleStore)(nil)
	_ driven.DistributedLock = (*MockDistributedLock)(nil)
)
