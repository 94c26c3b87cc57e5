package domain

import (
	"strings"
	"time"
)

const (
	StatusPending = "Pending"
	StatusExpired = "EXPIRED"
)

// DeadlineWindow is how long a new task stays Pending before it expires.
const DeadlineWindow = 5 * time.Minute

// Task represents a user-owned to-do item. (OwnerID, TaskID) is its only key.
type Task struct {
	OwnerID     string `json:"owner_id"`
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	// Deadline is in milliseconds since epoch. Zero means the record has none.
	Deadline int64 `json:"deadline,omitempty"`
	// ExpireAt is Deadline in seconds, kept as a storage TTL hint.
	ExpireAt int64 `json:"expire_at,omitempty"`
}

// NewTask builds a Pending task whose deadline is DeadlineWindow after now.
func NewTask(ownerID, description string, now time.Time, id string) *Task {
	deadline := now.Add(DeadlineWindow).UnixMilli()
	return &Task{
		OwnerID:     ownerID,
		TaskID:      id,
		Description: description,
		Status:      StatusPending,
		Deadline:    deadline,
		ExpireAt:    deadline / 1000,
	}
}

func (t *Task) HasDeadline() bool {
	return t != nil && t.Deadline > 0
}

// DeadlineTime converts a millisecond deadline to UTC. Zero stays the zero time.
func DeadlineTime(deadlineMs int64) time.Time {
	if deadlineMs <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(deadlineMs).UTC()
}

// ApplyDefaults fills attributes a stored record may lack.
func (t *Task) ApplyDefaults() {
	if t == nil {
		return
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
}

// TaskPatch carries the attributes of a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (p TaskPatch) Empty() bool {
	return p.Description == nil && p.Status == nil
}

// Apply writes the patch onto t and reports whether anything changed.
func (p TaskPatch) Apply(t *Task) bool {
	if t == nil {
		return false
	}
	changed := false
	if p.Description != nil && *p.Description != t.Description {
		t.Description = *p.Description
		changed = true
	}
	if p.Status != nil && *p.Status != t.Status {
		t.Status = *p.Status
		changed = true
	}
	return changed
}

// StatusPatch is the patch the expiry path applies.
func StatusPatch(status string) TaskPatch {
	return TaskPatch{Status: &status}
}

// BlankDescription reports whether description has no visible characters.
// Descriptions are stored exactly as given.
func BlankDescription(description string) bool {
	return strings.TrimSpace(description) == ""
}
