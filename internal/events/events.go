// Package events defines the mark event and ingest contracts shared by the
// NATS and Kafka transports.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	MarkRecorded Kind = "mark.recorded"
	MarkUpdated  Kind = "mark.updated"
	MarkDeleted  Kind = "mark.deleted"
)

// ErrRejected marks a submission that can never succeed. Consumers
// acknowledge it instead of retrying.
var ErrRejected = errors.New("submission rejected")

type MarkPayload struct {
	ID             int     `json:"id"`
	StudentID      int     `json:"student_id"`
	SubjectID      int     `json:"subject_id"`
	MarksObtained  float64 `json:"marks_obtained"`
	MaxMarks       float64 `json:"max_marks"`
	Percentage     float64 `json:"percentage"`
	Grade          string  `json:"grade"`
	AssessmentDate string  `json:"assessment_date"`
	AssessmentType string  `json:"assessment_type"`
}

type MarkEvent struct {
	ID         string      `json:"id"`
	Kind       Kind        `json:"kind"`
	OccurredAt time.Time   `json:"occurred_at"`
	Source     string      `json:"source,omitempty"`
	Mark       MarkPayload `json:"mark"`
}

func NewMarkEvent(kind Kind, source string, mark MarkPayload) MarkEvent {
	return MarkEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Source:     source,
		Mark:       mark,
	}
}

// Publisher ships mark events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event MarkEvent) error
	Close() error
}

// Nop drops every event. Used when events.driver is "none".
type Nop struct{}

func (Nop) Publish(context.Context, MarkEvent) error { return nil }
func (Nop) Close() error                             { return nil }

// MarkSubmission is the ingest payload external systems publish.
type MarkSubmission struct {
	SubmissionID   string  `json:"submission_id,omitempty"`
	StudentID      int     `json:"student_id"`
	SubjectID      int     `json:"subject_id"`
	MarksObtained  float64 `json:"marks_obtained"`
	MaxMarks       float64 `json:"max_marks,omitempty"`
	AssessmentDate string  `json:"assessment_date"`
	AssessmentType string  `json:"assessment_type,omitempty"`
}

// DecodeSubmission parses data, wrapping malformed JSON in ErrRejected.
func DecodeSubmission(data []byte) (MarkSubmission, error) {
	var sub MarkSubmission
	if err := json.Unmarshal(data, &sub); err != nil {
		return sub, fmt.Errorf("%w: malformed JSON: %v", ErrRejected, err)
	}
	return sub, nil
}

// Recorder stores an ingested submission. source names the transport.
type Recorder interface {
	RecordSubmission(ctx context.Context, sub MarkSubmission, source string) error
}
