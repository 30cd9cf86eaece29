package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names a committed change.
type EventKind string

const (
	EventEntryCreated    EventKind = "entry.created"
	EventEntryUpdated    EventKind = "entry.updated"
	EventEntryDeleted    EventKind = "entry.deleted"
	EventGoalCreated     EventKind = "goal.created"
	EventGoalUpdated     EventKind = "goal.updated"
	EventGoalDeleted     EventKind = "goal.deleted"
	EventBudgetSubmitted EventKind = "budget.submitted"
	EventBudgetRotated   EventKind = "budget.rotated"
	EventBudgetDeleted   EventKind = "budget.deleted"
)

var knownKinds = map[EventKind]bool{
	EventEntryCreated: true, EventEntryUpdated: true, EventEntryDeleted: true,
	EventGoalCreated: true, EventGoalUpdated: true, EventGoalDeleted: true,
	EventBudgetSubmitted: true, EventBudgetRotated: true, EventBudgetDeleted: true,
}

// ChangeEvent is a lightweight notification. Consumers load current state
// from the database by SubjectID instead of trusting a payload snapshot.
type ChangeEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	UserID    int64     `json:"user_id"`
	SubjectID int64     `json:"subject_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeEvent(kind EventKind, userID, subjectID int64) *ChangeEvent {
	return &ChangeEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
	}
}

// Subject returns "entry", "goal" or "budget".
func (e *ChangeEvent) Subject() string {
	for i := 0; i < len(e.Kind); i++ {
		if e.Kind[i] == '.' {
			return string(e.Kind[:i])
		}
	}
	return string(e.Kind)
}

// ToJSON converts the event to JSON bytes
func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes and validates an event.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !knownKinds[ev.Kind] {
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if ev.UserID <= 0 {
		return nil, errors.New("event without user id")
	}
	return &ev, nil
}
