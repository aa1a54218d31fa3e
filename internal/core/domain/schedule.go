package domain

import (
	"fmt"
	"strings"
)

// ScheduleType says how a sync gets triggered
type ScheduleType string

const (
	ScheduleTypeManual         ScheduleType = "manual"
	ScheduleTypeInterval       ScheduleType = "interval"
	ScheduleTypeCronExpression ScheduleType = "cron_expression"
)

// IntervalUnit is the unit of a sync interval
type IntervalUnit string

const (
	IntervalUnitMinutes IntervalUnit = "minutes"
	IntervalUnitHours   IntervalUnit = "hours"
	IntervalUnitDays    IntervalUnit = "days"
)

// Trigger is the concrete schedule handed to the orchestration engine.
// The zero value means "no trigger": the sync only runs on explicit request.
type Trigger struct {
	Cron string `json:"cron,omitempty"`
}

// IsNone reports whether the trigger never fires on its own.
func (t Trigger) IsNone() bool {
	return t.Cron == ""
}

func (t Trigger) String() string {
	if t.IsNone() {
		return "none"
	}
	return t.Cron
}

// EffectiveTrigger derives the trigger for a schedule declaration.
// It performs no I/O: identical input always yields an identical trigger.
//
//	cron_expression: the expression is used verbatim
//	interval:        minutes "*/N * * * *", hours "0 */N * * *", days "0 0 */N * *"
//	manual:          no trigger
func EffectiveTrigger(scheduleType ScheduleType, interval int, unit IntervalUnit, cronExpression string) (Trigger, error) {
	switch scheduleType {
	case ScheduleTypeManual:
		return Trigger{}, nil
	case ScheduleTypeCronExpression:
		expr := strings.TrimSpace(cronExpression)
		if expr == "" {
			return Trigger{}, fmt.Errorf("%w: cron_expression is required", ErrInvalidSchedule)
		}
		return Trigger{Cron: expr}, nil
	case ScheduleTypeInterval:
		if interval <= 0 {
			return Trigger{}, fmt.Errorf("%w: sync_interval must be greater than 0", ErrInvalidSchedule)
		}
		switch IntervalUnit(strings.ToLower(string(unit))) {
		case IntervalUnitMinutes:
			return Trigger{Cron: fmt.Sprintf("*/%d * * * *", interval)}, nil
		case IntervalUnitHours:
			return Trigger{Cron: fmt.Sprintf("0 */%d * * *", interval)}, nil
		case IntervalUnitDays:
			return Trigger{Cron: fmt.Sprintf("0 0 */%d * *", interval)}, nil
		default:
			return Trigger{}, fmt.Errorf("%w: %q", ErrInvalidIntervalUnit, unit)
		}
	default:
		return Trigger{}, fmt.Errorf("%w: unknown schedule type %q", ErrInvalidSchedule, scheduleType)
	}
}
