package events

import (
	"time"
)

// Kind is the coarse change classification consumers subscribe to.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Model names the entity an event is about.
type Model string

const (
	ModelNote     Model = "note"
	ModelThought  Model = "thought"
	ModelQuestion Model = "question"
	ModelProject  Model = "project"
	ModelScribe   Model = "scribe"
)

// Action is the fine-grained change. Each action maps to exactly one Kind.
type Action string

const (
	ActionCreated     Action = "created"
	ActionScratched   Action = "scratched"
	ActionRefuted     Action = "refuted"
	ActionLinked      Action = "linked"
	ActionTagged      Action = "tagged"
	ActionCategorized Action = "categorized"
	ActionLocked      Action = "locked"
	ActionUnlocked    Action = "unlocked"
)

// Kind classifies the action.
func (a Action) Kind() Kind {
	switch a {
	case ActionCreated:
		return KindCreate
	case ActionScratched:
		return KindDelete
	default:
		return KindUpdate
	}
}

// ModelEvent is the single event shape emitted by the core:
// {kind, model, id, projectId, timestamp}. Related carries the other end of a
// relation (the refuter or the link target) when there is one.
type ModelEvent struct {
	BaseEvent
	Kind      Kind   `json:"kind"`
	Model     Model  `json:"model"`
	Action    Action `json:"action"`
	ID        string `json:"id"`
	ProjectID string `json:"project_id,omitempty"`
	Related   string `json:"related_id,omitempty"`
}

// NewModelEvent creates a ModelEvent, e.g. thought.refuted
func NewModelEvent(model Model, action Action, id, projectID string, timestamp time.Time) ModelEvent {
	return ModelEvent{
		BaseEvent: BaseEvent{
			AggregateID: id,
			EventType:   string(model) + "." + string(action),
			Timestamp:   timestamp,
			Version:     1,
		},
		Kind:      action.Kind(),
		Model:     model,
		Action:    action,
		ID:        id,
		ProjectID: projectID,
	}
}

// WithRelated sets the related identifier
func (e ModelEvent) WithRelated(id string) ModelEvent {
	e.Related = id
	return e
}
