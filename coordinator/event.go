package coordinator

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies an Event.
type Kind string

// Event kinds.
const (
	KindQueued    Kind = "queued"
	KindStarted   Kind = "started"
	KindProgress  Kind = "progress"
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
)

// Event reports the progress of a task.
type Event struct {
	TaskID  uuid.UUID
	Task    string
	Kind    Kind
	Message string
	Time    time.Time
}
