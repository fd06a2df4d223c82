package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shorif2005/projectflow/internal/models"
	apperrors "github.com/shorif2005/projectflow/pkg/errors"
)

func setupTaskService(t *testing.T) (*gorm.DB, *TaskService) {
	t.Helper()

	db := openServiceTestDB(t)

	users, err := NewUserService(db)
	require.NoError(t, err)
	invites, err := NewInviteService(db, nil)
	require.NoError(t, err)
	svc, err := NewTaskService(db, users, invites, nil)
	require.NoError(t, err)

	return db, svc
}

func TestTaskServiceCreateUnassigned(t *testing.T) {
	db, svc := setupTaskService(t)
	manager := seedUser(t, db, "manager")
	project := seedProject(t, db, manager.ID)

	task, result, err := svc.Create(context.Background(), manager.ID, CreateTaskInput{
		ProjectID:   project.ID,
		Title:       "Draft the landing page",
		Description: "Hero copy and pricing table",
		Deadline:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, AssignmentNone, result)
	require.Equal(t, models.TaskStatusTodo, task.Status)
	require.Equal(t, models.AssignmentUnassigned, task.Assignment().State)
}

func TestTaskServiceAssignByEmailBindsExistingAccount(t *testing.T) {
	db, svc := setupTaskService(t)
	manager := seedUser(t, db, "manager")
	member := seedUser(t, db, "member")
	project := seedProject(t, db, manager.ID)

	task, result, err := svc.Create(context.Background(), manager.ID, CreateTaskInput{
		ProjectID:     project.ID,
		Title:         "Review API docs",
		AssigneeEmail: "Member@Example.com",
	})
	require.NoError(t, err)
	require.Equal(t, AssignmentBound, result)

	assignment := task.Assignment()
	require.Equal(t, models.AssignmentBoundToUser, assignment.State)
	require.Equal(t, member.ID, assignment.UserID)

	// No invite is recorded when the address already has an account.
	var invites int64
	require.NoError(t, db.Model(&models.TaskInvite{}).Count(&invites).Error)
	require.Zero(t, invites)
}

func TestTaskServiceAssignByEmailParksAndInvites(t *testing.T) {
	db, svc := setupTaskService(t)
	manager := seedUser(t, db, "manager")
	project := seedProject(t, db, manager.ID)

	task, result, err := svc.Create(context.Background(), manager.ID, CreateTaskInput{
		ProjectID:     project.ID,
		Title:         "Set up CI",
		AssigneeEmail: "newcomer@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, AssignmentPendingInvited, result)

	assignment := task.Assignment()
	require.Equal(t, models.AssignmentPendingEmail, assignment.State)
	require.Equal(t, "newcomer@example.com", assignment.Email)

	var invite models.TaskInvite
	require.NoError(t, db.First(&invite, "email = ?", "newcomer@example.com").Error)
	require.True(t, invite.Active)
	require.Equal(t, manager.ID, invite.InviterID)
	require.NotNil(t, invite.ProjectID)
	require.Equal(t, project.ID, *invite.ProjectID)
}

func TestTaskServiceAssignByEmailQuotaExceededStillParks(t *testing.T) {
	db, svc := setupTaskService(t)
	manager := seedUser(t, db, "manager")
	project := seedProject(t, db, manager.ID)

	for i := 0; i < svc.invites.DailyLimit(); i++ {
		_, err := svc.invites.Create(context.Background(), fmt.Sprintf("filler%d@example.com", i), manager.ID, nil)
		require.NoError(t, err)
	}

	task, result, err := svc.Create(context.Background(), manager.ID, CreateTaskInput{
		ProjectID:     project.ID,
		Title:         "Write onboarding guide",
		AssigneeEmail: "late@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, AssignmentPendingQuotaExceeded, result)
	require.Equal(t, models.AssignmentPendingEmail, task.Assignment().State)

	var invites int64
	require.NoError(t, db.Model(&models.TaskInvite{}).Where("email = ?", "late@example.com").Count(&invites).Error)
	require.Zero(t, invites)
}

func TestTaskServiceCreateRejectsConflictingAssignment(t *testing.T) {
	db, svc := setupTaskService(t)
	manager := seedUser(t, db, "manager")
	member := seedUser(t, db, "member")
	project := seedProject(t, db, manager.ID)

	_, _, err := svc.Create(context.Background(), manager.ID, CreateTaskInput{
		ProjectID:     project.ID,
		Title:         "Impossible task",
		AssigneeID:    member.ID,
		AssigneeEmail: "someone@example.com",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
}

func TestTaskServiceCreateRequiresManager(t *testing.T) {
	db, svc := setupTaskService(t)
	manager := seedUser(t, db, "manager")
	outsider := seedUser(t, db, "outsider")
	project := seedProject(t, db, manager.ID)

	_, _, err := svc.Create(context.Background(), outsider.ID, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Sneaky task",
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestTaskServiceUpdateReassignsThroughResolver(t *testing.T) {
	db, svc := setupTaskService(t)
	manager := seedUser(t, db, "manager")
	member := seedUser(t, db, "member")
	project := seedProject(t, db, manager.ID)

	task, _, err := svc.Create(context.Background(), manager.ID, CreateTaskInput{
		ProjectID:  project.ID,
		Title:      "Rotate credentials",
		AssigneeID: member.ID,
	})
	require.NoError(t, err)

	email := "stranger@example.com"
	updated, result, err := svc.Update(context.Background(), manager.ID, task.ID, UpdateTaskInput{
		AssigneeEmail: &email,
	})
	require.NoError(t, err)
	require.Equal(t, AssignmentPendingInvited, result)
	require.Equal(t, models.AssignmentPendingEmail, updated.Assignment().State)

	// The stored row must not keep the old assignee alongside the pending email.
	var stored models.Task
	require.NoError(t, db.First(&stored, "id = ?", task.ID).Error)
	require.Nil(t, stored.AssigneeID)
	require.NotNil(t, stored.AssigneeEmail)
	require.Equal(t, email, *stored.AssigneeEmail)

	// Clearing the assignment leaves the task unassigned.
	empty := ""
	updated, result, err = svc.Update(context.Background(), manager.ID, task.ID, UpdateTaskInput{
		AssigneeEmail: &empty,
	})
	require.NoError(t, err)
	require.Equal(t, AssignmentNone, result)
	require.Equal(t, models.AssignmentUnassigned, updated.Assignment().State)
}

func TestTaskServiceUpdateStatus(t *testing.T) {
	db, svc := setupTaskService(t)
	manager := seedUser(t, db, "manager")
	member := seedUser(t, db, "member")
	outsider := seedUser(t, db, "outsider")
	project := seedProject(t, db, manager.ID)

	task, _, err := svc.Create(context.Background(), manager.ID, CreateTaskInput{
		ProjectID:  project.ID,
		Title:      "Ship release notes",
		AssigneeID: member.ID,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), member.ID, task.ID, models.TaskStatusInProgress)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusInProgress, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), outsider.ID, task.ID, models.TaskStatusDone)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.UpdateStatus(context.Background(), manager.ID, task.ID, "archived")
	require.Error(t, err)
}

func TestTaskServiceDelete(t *testing.T) {
	db, svc := setupTaskService(t)
	manager := seedUser(t, db, "manager")
	outsider := seedUser(t, db, "outsider")
	project := seedProject(t, db, manager.ID)

	task, _, err := svc.Create(context.Background(), manager.ID, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Throwaway",
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), outsider.ID, task.ID), apperrors.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), manager.ID, task.ID))

	_, err = svc.GetByID(context.Background(), task.ID)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskServiceCountPendingForEmail(t *testing.T) {
	db, svc := setupTaskService(t)
	manager := seedUser(t, db, "manager")
	project := seedProject(t, db, manager.ID)

	for i := 0; i < 3; i++ {
		_, _, err := svc.Create(context.Background(), manager.ID, CreateTaskInput{
			ProjectID:     project.ID,
			Title:         fmt.Sprintf("Task %d", i),
			AssigneeEmail: "busy@example.com",
		})
		require.NoError(t, err)
	}

	count, err := svc.CountPendingForEmail(context.Background(), "Busy@Example.com")
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
}
