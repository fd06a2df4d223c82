package models

import "testing"

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"project", func() *BaseModel {
			p := &Project{}
			return &p.BaseModel
		}},
		{"task", func() *BaseModel {
			k := &Task{}
			return &k.BaseModel
		}},
		{"task_invite", func() *BaseModel {
			i := &TaskInvite{}
			return &i.BaseModel
		}},
		{"profile", func() *BaseModel {
			p := &Profile{}
			return &p.BaseModel
		}},
		{"email_otp", func() *BaseModel {
			o := &EmailOTP{}
			return &o.BaseModel
		}},
		{"project_message", func() *BaseModel {
			m := &ProjectMessage{}
			return &m.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := tc.model()
			if err := base.BeforeCreate(nil); err != nil {
				t.Fatalf("before create: %v", err)
			}
			if base.ID == "" {
				t.Fatal("expected ID to be generated")
			}
		})
	}
}

func TestTaskStatusValid(t *testing.T) {
	for _, status := range []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone} {
		if !status.Valid() {
			t.Fatalf("expected %q to be valid", status)
		}
	}
	if TaskStatus("archived").Valid() {
		t.Fatal("expected unknown status to be invalid")
	}
}

func TestTaskAssignmentTransitions(t *testing.T) {
	task := &Task{}

	if got := task.Assignment(); got.State != AssignmentUnassigned {
		t.Fatalf("expected new task to be unassigned, got %v", got.State)
	}

	task.ParkForEmail("New@X.com")
	parked := task.Assignment()
	if parked.State != AssignmentPendingEmail || parked.Email != "new@x.com" {
		t.Fatalf("unexpected pending assignment: %+v", parked)
	}
	if task.AssigneeID != nil {
		t.Fatal("expected assignee to be cleared when parking on email")
	}

	task.BindTo("user-1")
	bound := task.Assignment()
	if bound.State != AssignmentBoundToUser || bound.UserID != "user-1" {
		t.Fatalf("unexpected bound assignment: %+v", bound)
	}
	if task.AssigneeEmail != nil {
		t.Fatal("expected pending email to be cleared when binding")
	}

	task.ClearAssignment()
	if got := task.Assignment(); got.State != AssignmentUnassigned {
		t.Fatalf("expected cleared task to be unassigned, got %v", got.State)
	}
}

func TestTaskBeforeSaveRejectsConflictingAssignment(t *testing.T) {
	id := "user-1"
	email := "pending@x.com"
	task := &Task{AssigneeID: &id, AssigneeEmail: &email}

	if err := task.BeforeSave(nil); err != ErrConflictingAssignment {
		t.Fatalf("expected ErrConflictingAssignment, got %v", err)
	}

	task.BindTo(id)
	if err := task.BeforeSave(nil); err != nil {
		t.Fatalf("expected bound task to save, got %v", err)
	}
}
