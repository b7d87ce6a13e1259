package events

import "time"

// StreamEvents is the JetStream stream backing all service events.
const StreamEvents = "SENTIQ_EVENTS"

// Subjects.
const (
	SubjectAbuseViolation     = "sentiq.events.abuse.violation"
	SubjectInferenceCompleted = "sentiq.events.inference.completed"
)

// ViolationEvent is emitted when the quota gate denies a request.
type ViolationEvent struct {
	IdentityKey string    `json:"identity_key"`
	Reason      string    `json:"reason"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// InferenceEvent is emitted after a completed inference.
type InferenceEvent struct {
	InferenceID  string    `json:"inference_id"`
	Label        string    `json:"label"`
	Score        float64   `json:"score"`
	ModelVersion string    `json:"model_version"`
	OccurredAt   time.Time `json:"occurred_at"`
}
