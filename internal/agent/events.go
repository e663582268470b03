package agent

import "time"

// Swarm lifecycle event types published to the WebSocket hub.
const (
	EventJobStarted        = "job_started"
	EventTaskStarted       = "task_started"
	EventTaskCompleted     = "task_completed"
	EventTaskFailed        = "task_failed"
	EventJobSettled        = "job_settled"
	EventSynthesisComplete = "synthesis_completed"
)

// Event is one swarm lifecycle notification.
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Label     string    `json:"label,omitempty"`
	Status    string    `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events to the subscribers of a session. A slow
// subscriber must never block the publisher; implementations drop
// instead.
type Publisher interface {
	Publish(sessionID string, event Event)
}
