package types

import "time"

// EventType is the declared direction of an access attempt.
type EventType string

const (
	EventEntry EventType = "entry"
	EventExit  EventType = "exit"
)

// Valid reports whether t is one of the two declared directions.
func (t EventType) Valid() bool { return t == EventEntry || t == EventExit }

// AuthMethod records how the employee proved their identity.
type AuthMethod string

const (
	MethodFacial      AuthMethod = "facial"
	MethodCredentials AuthMethod = "credentials"
	MethodToken       AuthMethod = "token"
)

// EventStatus is the resolution status of an access event.  Approved and
// rejected events are immutable; pending_authorization may transition exactly
// once into approved or rejected via a supervisor resolution.
type EventStatus string

const (
	StatusApproved EventStatus = "approved"
	StatusRejected EventStatus = "rejected"
	StatusPending  EventStatus = "pending_authorization"
)

// Terminal reports whether the status admits no further transition.
func (s EventStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// EventDetail carries free-form context for an event, primarily the
// shift-mismatch information attached to escalations.
type EventDetail struct {
	Reason         string `json:"reason,omitempty"`
	AssignedShift  string `json:"assigned_shift,omitempty"`
	AttemptedShift string `json:"attempted_shift,omitempty"`
}

// AccessEvent is a timestamped attendance fact for one employee.
//
// For a given employee the events need not strictly alternate entry/exit:
// rejected and pending events do not change presence.  The last approved
// event alone determines whether the employee is currently inside.
type AccessEvent struct {
	ID           string       `json:"id"`
	EmployeeCode string       `json:"employee_code"`
	Type         EventType    `json:"type"`
	Timestamp    time.Time    `json:"timestamp"` // UTC instant
	Method       AuthMethod   `json:"method"`
	Status       EventStatus  `json:"status"`
	Detail       *EventDetail `json:"detail,omitempty"`
}

// LastApproved returns the most recent approved event for the employee, or
// nil if there is none.  Events may be passed in any order.
func LastApproved(events []AccessEvent, employeeCode string) *AccessEvent {
	var last *AccessEvent
	for i := range events {
		ev := &events[i]
		if ev.EmployeeCode != employeeCode || ev.Status != StatusApproved {
			continue
		}
		if last == nil || ev.Timestamp.After(last.Timestamp) {
			last = ev
		}
	}
	if last == nil {
		return nil
	}
	cp := *last
	return &cp
}
