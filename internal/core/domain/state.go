package domain

// SyncStatus is the operational status of a sync.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusHealthy  SyncStatus = "healthy"
	SyncStatusFailed   SyncStatus = "failed"
	SyncStatusDisabled SyncStatus = "disabled"
)

// InitialSyncStatus is the status every new sync starts in.
const InitialSyncStatus = SyncStatusPending

// IsValid reports whether s is a known status.
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusHealthy, SyncStatusFailed, SyncStatusDisabled:
		return true
	}
	return false
}

// SyncEvent is a lifecycle event that moves a sync between statuses.
type SyncEvent string

const (
	SyncEventComplete SyncEvent = "complete"
	SyncEventFail     SyncEvent = "fail"
	SyncEventDisable  SyncEvent = "disable"
	SyncEventEnable   SyncEvent = "enable"
)

type transitionRule struct {
	from []SyncStatus
	to   SyncStatus
}

// transitions is the full state machine. There is no terminal state.
var transitions = map[SyncEvent]transitionRule{
	SyncEventComplete: {from: []SyncStatus{SyncStatusPending, SyncStatusHealthy}, to: SyncStatusHealthy},
	SyncEventFail:     {from: []SyncStatus{SyncStatusPending, SyncStatusHealthy}, to: SyncStatusFailed},
	SyncEventDisable:  {from: []SyncStatus{SyncStatusPending, SyncStatusHealthy, SyncStatusFailed}, to: SyncStatusDisabled},
	SyncEventEnable:   {from: []SyncStatus{SyncStatusDisabled}, to: SyncStatusPending},
}

// Transition records one permitted step through the state machine.
type Transition struct {
	Event SyncEvent  `json:"event"`
	From  SyncStatus `json:"from"`
	To    SyncStatus `json:"to"`
}

// Changed reports whether the transition moved the sync to a different status.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Events returns every known lifecycle event.
func Events() []SyncEvent {
	return []SyncEvent{SyncEventComplete, SyncEventFail, SyncEventDisable, SyncEventEnable}
}

// IsValid reports whether e is a known event.
func (e SyncEvent) IsValid() bool {
	_, ok := transitions[e]
	return ok
}

// CanFire reports whether event is allowed from s.
func (s SyncStatus) CanFire(event SyncEvent) bool {
	rule, ok := transitions[event]
	if !ok {
		return false
	}
	for _, from := range rule.from {
		if from == s {
			return true
		}
	}
	return false
}

// Next looks up the transition for event from s. Firing an event from a status
// that is not an allowed source returns a *TransitionError.
func (s SyncStatus) Next(event SyncEvent) (Transition, error) {
	if !s.CanFire(event) {
		return Transition{}, &TransitionError{Event: event, From: s}
	}
	return Transition{Event: event, From: s, To: transitions[event].to}, nil
}
