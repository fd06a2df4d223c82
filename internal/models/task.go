package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// TaskStatus enumerates the lifecycle states of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// ErrConflictingAssignment is returned when a task would end up both bound to a
// user and pending on an email address.
var ErrConflictingAssignment = errors.New("task: assignee and assignee email are mutually exclusive")

// AssignmentState tags the exclusive assignment variants of a task.
type AssignmentState int

const (
	// AssignmentUnassigned marks a task with no assignee of any kind.
	AssignmentUnassigned AssignmentState = iota
	// AssignmentBoundToUser marks a task bound to an existing account.
	AssignmentBoundToUser
	// AssignmentPendingEmail marks a task parked against an email address whose
	// owner has not registered yet.
	AssignmentPendingEmail
)

// Assignment is the tagged representation of a task's assignment. Exactly one of
// UserID / Email carries a value, depending on State.
type Assignment struct {
	State  AssignmentState
	UserID string
	Email  string
}

// Task belongs to exactly one project and is either unassigned, bound to a user,
// or pending against an email address.
type Task struct {
	BaseModel

	ProjectID string   `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	AssigneeID    *string `gorm:"type:uuid;index" json:"assignee_id,omitempty"`
	Assignee      *User   `gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
	AssigneeEmail *string `gorm:"index" json:"assignee_email,omitempty"`

	Deadline time.Time  `json:"deadline"`
	Status   TaskStatus `gorm:"type:varchar(20);not null;default:todo" json:"status"`
}

// Assignment returns the task's assignment as a tagged variant.
func (t *Task) Assignment() Assignment {
	switch {
	case t.AssigneeID != nil && *t.AssigneeID != "":
		return Assignment{State: AssignmentBoundToUser, UserID: *t.AssigneeID}
	case t.AssigneeEmail != nil && *t.AssigneeEmail != "":
		return Assignment{State: AssignmentPendingEmail, Email: *t.AssigneeEmail}
	default:
		return Assignment{State: AssignmentUnassigned}
	}
}

// BindTo assigns the task to an existing account and clears any pending email.
// The loaded Assignee is dropped so a later save cannot resurrect the old ID
// through the association.
func (t *Task) BindTo(userID string) {
	id := strings.TrimSpace(userID)
	t.AssigneeID = &id
	t.Assignee = nil
	t.AssigneeEmail = nil
}

// ParkForEmail records a pending email assignment, clearing any direct assignee.
func (t *Task) ParkForEmail(email string) {
	addr := strings.ToLower(strings.TrimSpace(email))
	t.AssigneeEmail = &addr
	t.AssigneeID = nil
	t.Assignee = nil
}

// ClearAssignment removes any assignment, direct or pending.
func (t *Task) ClearAssignment() {
	t.AssigneeID = nil
	t.Assignee = nil
	t.AssigneeEmail = nil
}

// BeforeSave rejects rows that would violate the assignment exclusivity invariant.
// The setters above make this unreachable through normal use; the hook guards raw
// struct writes.
func (t *Task) BeforeSave(tx *gorm.DB) error {
	if t.AssigneeID != nil && *t.AssigneeID != "" &&
		t.AssigneeEmail != nil && *t.AssigneeEmail != "" {
		return ErrConflictingAssignment
	}
	return nil
}
