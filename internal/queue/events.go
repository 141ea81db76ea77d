package queue

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// TypeAttendanceCommitted marks a successful batch commit.
const TypeAttendanceCommitted = "attendance.committed"

// CommitEvent tells the worker a class changed on a date.
type CommitEvent struct {
	ClassID    string `json:"class_id"`
	Date       string `json:"date"`
	Entries    int    `json:"entries"`
	RecordedBy string `json:"recorded_by"`
}

// PublishCommit enqueues a CommitEvent.
func PublishCommit(ctx context.Context, q Queue, evt CommitEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return q.Publish(ctx, Message{Type: TypeAttendanceCommitted, Body: body})
}

// DecodeCommit parses the body of an attendance.committed message.
func DecodeCommit(msg Message) (CommitEvent, error) {
	if msg.Type != TypeAttendanceCommitted {
		return CommitEvent{}, errors.Errorf("unexpected message type %q", msg.Type)
	}
	var evt CommitEvent
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		return CommitEvent{}, errors.Wrap(err, "decode commit event")
	}
	if evt.ClassID == "" {
		return CommitEvent{}, errors.New("commit event without class id")
	}
	return evt, nil
}
