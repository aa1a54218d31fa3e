package domain

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// SyncMode controls how the source is read
type SyncMode string

const (
	SyncModeFullRefresh SyncMode = "full_refresh"
	SyncModeIncremental SyncMode = "incremental"
)

// DestinationSyncMode controls how the destination is written.
// Only insert is supported.
type DestinationSyncMode string

const (
	DestinationSyncModeInsert DestinationSyncMode = "insert"
)

// Sync is one configured, recurring or manual data-movement job between a
// source connector and a destination stream.
type Sync struct {
	ID            string `json:"id"`
	WorkspaceID   string `json:"workspace_id" validate:"required"`
	SourceID      string `json:"source_id" validate:"required"`
	DestinationID string `json:"destination_id" validate:"required"`
	ModelID       string `json:"model_id" validate:"required"`

	// Configuration describes the source-side selection (opaque to the controller)
	Configuration map[string]any `json:"configuration" validate:"required,min=1"`

	StreamName         string   `json:"stream_name" validate:"required"`
	SyncMode           SyncMode `json:"sync_mode" validate:"required,oneof=full_refresh incremental"`
	CursorField        string   `json:"cursor_field,omitempty"`
	CurrentCursorField string   `json:"current_cursor_field,omitempty"`

	ScheduleType     ScheduleType `json:"schedule_type" validate:"required,oneof=manual interval cron_expression"`
	SyncInterval     int          `json:"sync_interval,omitempty" validate:"gte=0"`
	SyncIntervalUnit IntervalUnit `json:"sync_interval_unit,omitempty"`
	CronExpression   string       `json:"cron_expression,omitempty"`

	Status SyncStatus `json:"status" validate:"required,oneof=pending healthy failed disabled"`

	// WorkflowID correlates the sync with its active schedule workflow
	WorkflowID string `json:"workflow_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DiscardedAt *time.Time `json:"discarded_at,omitempty"`
}

// IsManual reports whether the sync only runs on explicit request
func (s *Sync) IsManual() bool {
	return s.ScheduleType == ScheduleTypeManual
}

// IsDiscarded reports whether the sync has been soft-deleted
func (s *Sync) IsDiscarded() bool {
	return s.DiscardedAt != nil
}

// Trigger returns the effective trigger for the sync's schedule declaration
func (s *Sync) Trigger() (Trigger, error) {
	return EffectiveTrigger(s.ScheduleType, s.SyncInterval, s.SyncIntervalUnit, s.CronExpression)
}

// ValidateSchedule checks that exactly the fields matching the schedule type
// are populated and that they produce a trigger. Manual syncs ignore the
// interval and cron fields.
func (s *Sync) ValidateSchedule() error {
	hasInterval := s.SyncInterval != 0 || s.SyncIntervalUnit != ""
	hasCron := strings.TrimSpace(s.CronExpression) != ""

	switch s.ScheduleType {
	case ScheduleTypeInterval:
		if hasCron {
			return fmt.Errorf("%w: cron_expression must be empty for interval schedules", ErrInvalidSchedule)
		}
		if s.SyncIntervalUnit == "" {
			return fmt.Errorf("%w: sync_interval_unit is required", ErrInvalidSchedule)
		}
	case ScheduleTypeCronExpression:
		if hasInterval {
			return fmt.Errorf("%w: sync_interval fields must be empty for cron schedules", ErrInvalidSchedule)
		}
	}

	_, err := s.Trigger()
	return err
}

// ScheduleChanged reports whether any field that feeds the trigger, or the
// status, differs from before.
func (s *Sync) ScheduleChanged(before *Sync) bool {
	if before == nil {
		return true
	}
	return s.SyncInterval != before.SyncInterval ||
		s.SyncIntervalUnit != before.SyncIntervalUnit ||
		s.CronExpression != before.CronExpression ||
		s.Status != before.Status
}

// Clone returns a copy that shares no mutable state with s
func (s *Sync) Clone() *Sync {
	if s == nil {
		return nil
	}
	c := *s
	c.Configuration = maps.Clone(s.Configuration)
	if s.DiscardedAt != nil {
		t := *s.DiscardedAt
		c.DiscardedAt = &t
	}
	return &c
}
