package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing service events.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// RecordViolation publishes a quota denial; it satisfies the quota gate's
// violation sink contract.
func (p *Publisher) RecordViolation(ctx context.Context, identityKey, reason string) error {
	return p.publish(ctx, SubjectAbuseViolation, ViolationEvent{
		IdentityKey: identityKey,
		Reason:      reason,
		OccurredAt:  time.Now().UTC(),
	})
}

// PublishInferenceCompleted publishes a completed-inference event.
func (p *Publisher) PublishInferenceCompleted(ctx context.Context, event InferenceEvent) error {
	return p.publish(ctx, SubjectInferenceCompleted, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
