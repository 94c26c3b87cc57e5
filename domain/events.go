package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ChangeKind names the store mutation a ChangeEvent describes.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeModify ChangeKind = "MODIFY"
	ChangeRemove ChangeKind = "REMOVE"
)

// ChangeEvent is one record of the task store's change stream.
type ChangeEvent struct {
	Kind     ChangeKind `json:"event_kind"`
	NewImage *Task      `json:"after_image"`
	OldImage *Task      `json:"before_image,omitempty"`
}

// Schedulable reports whether the event can drive an expiry message.
func (e ChangeEvent) Schedulable() bool {
	return (e.Kind == ChangeInsert || e.Kind == ChangeModify) && e.NewImage != nil
}

// Key returns the owner:task key used to partition the stream.
func (e ChangeEvent) Key() string {
	img := e.NewImage
	if img == nil {
		img = e.OldImage
	}
	if img == nil {
		return ""
	}
	return img.OwnerID + ":" + img.TaskID
}

// ExpiryMessage is the delay-queue payload that asks for a task to be expired.
type ExpiryMessage struct {
	TaskID   string `json:"task_id"`
	OwnerID  string `json:"owner_id"`
	Deadline int64  `json:"deadline"`
}

func (m ExpiryMessage) Validate() error {
	if m.TaskID == "" || m.OwnerID == "" {
		return ErrMissingMessageKey
	}
	return nil
}

// UnmarshalJSON accepts owner_id or user_id, the camelCase keys, and a
// deadline encoded either as a number or as a numeric string.
func (m *ExpiryMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		TaskID      string          `json:"task_id"`
		TaskIDCamel string          `json:"taskId"`
		OwnerID     string          `json:"owner_id"`
		UserID      string          `json:"user_id"`
		UserIDCamel string          `json:"userId"`
		Deadline    json.RawMessage `json:"deadline"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.TaskID = firstNonEmpty(raw.TaskID, raw.TaskIDCamel)
	m.OwnerID = firstNonEmpty(raw.OwnerID, raw.UserID, raw.UserIDCamel)
	m.Deadline = 0

	deadline := bytes.Trim(bytes.TrimSpace(raw.Deadline), `"`)
	if len(deadline) == 0 || string(deadline) == "null" {
		return nil
	}
	parsed, err := strconv.ParseInt(string(deadline), 10, 64)
	if err != nil {
		return fmt.Errorf("decode deadline %q: %w", deadline, err)
	}
	m.Deadline = parsed
	return nil
}

// AuthEvent is raised by the identity provider after a successful sign-in.
type AuthEvent struct {
	Username   string            `json:"username"`
	Attributes map[string]string `json:"user_attributes"`
}

func (e AuthEvent) Email() string {
	return e.Attributes["email"]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
