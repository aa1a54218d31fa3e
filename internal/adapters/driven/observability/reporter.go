// Package observability records failures that are reported instead of
// returned to a caller.
package observability

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ErrorReporter = (*LogReporter)(nil)

// LogReporter implements driven.ErrorReporter by writing structured error
// logs. Attributes are emitted in key order so log lines are stable.
type LogReporter struct {
	logger *slog.Logger
	count  atomic.Int64
}

// NewLogReporter creates a reporter; a nil logger uses slog.Default()
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger.With("component", "error_reporter")}
}

// Report logs err with its attributes
func (r *LogReporter) Report(ctx context.Context, err error, attrs map[string]string) {
	if err == nil {
		return
	}
	r.count.Add(1)

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, 2*len(keys)+2)
	args = append(args, "error", err.Error())
	for _, k := range keys {
		args = append(args, k, attrs[k])
	}
	r.logger.ErrorContext(ctx, "reported error", args...)
}

// Count returns how many errors have been reported since start
func (r *LogReporter) Count() int64 {
	return r.count.Load()
}
