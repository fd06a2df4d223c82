package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shorif2005/projectflow/internal/models"
)

func setupLinkingService(t *testing.T) (*gorm.DB, *LinkingService, *TaskService) {
	t.Helper()

	db := openServiceTestDB(t)

	users, err := NewUserService(db)
	require.NoError(t, err)
	invites, err := NewInviteService(db, nil)
	require.NoError(t, err)
	tasks, err := NewTaskService(db, users, invites, nil)
	require.NoError(t, err)

	current := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	linking, err := NewLinkingService(db, invites, nil,
		WithLinkingClock(func() time.Time { return current }),
	)
	require.NoError(t, err)

	return db, linking, tasks
}

func parkTask(t *testing.T, db *gorm.DB, tasks *TaskService, managerID, projectID, title, email string) *models.Task {
	t.Helper()

	task, _, err := tasks.Create(context.Background(), managerID, CreateTaskInput{
		ProjectID:     projectID,
		Title:         title,
		AssigneeEmail: email,
	})
	require.NoError(t, err)
	require.Equal(t, models.AssignmentPendingEmail, task.Assignment().State)
	return task
}

func TestLinkingOnRegisterBindsPendingWork(t *testing.T) {
	db, linking, tasks := setupLinkingService(t)
	manager := seedUser(t, db, "manager")
	project := seedProject(t, db, manager.ID)

	parkTask(t, db, tasks, manager.ID, project.ID, "First", "newbie@example.com")
	parkTask(t, db, tasks, manager.ID, project.ID, "Second", "newbie@example.com")

	// The invitee registers with the invited address.
	newbie := seedUser(t, db, "newbie")

	result, err := linking.OnRegister(context.Background(), newbie)
	require.NoError(t, err)
	// Each parked assignment opened its own invitation; reconciliation closes both.
	require.EqualValues(t, 2, result.TasksLinked)
	require.EqualValues(t, 2, result.InvitesClosed)

	var linked []models.Task
	require.NoError(t, db.Where("assignee_id = ?", newbie.ID).Find(&linked).Error)
	require.Len(t, linked, 2)
	for _, task := range linked {
		require.Nil(t, task.AssigneeEmail)
	}

	var openInvites int64
	require.NoError(t, db.Model(&models.TaskInvite{}).
		Where("email = ? AND active = ?", "newbie@example.com", true).
		Count(&openInvites).Error)
	require.Zero(t, openInvites)

	// A second pass finds nothing.
	result, err = linking.OnRegister(context.Background(), newbie)
	require.NoError(t, err)
	require.Zero(t, result.TasksLinked)
	require.Zero(t, result.InvitesClosed)
}

func TestLinkingOnRegisterLeavesOtherEmailsAlone(t *testing.T) {
	db, linking, tasks := setupLinkingService(t)
	manager := seedUser(t, db, "manager")
	project := seedProject(t, db, manager.ID)

	parkTask(t, db, tasks, manager.ID, project.ID, "Theirs", "someone.else@example.com")

	newbie := seedUser(t, db, "newbie")
	result, err := linking.OnRegister(context.Background(), newbie)
	require.NoError(t, err)
	require.Zero(t, result.TasksLinked)

	var pending int64
	require.NoError(t, db.Model(&models.Task{}).
		Where("assignee_email = ?", "someone.else@example.com").
		Count(&pending).Error)
	require.EqualValues(t, 1, pending)
}

func TestLinkingOnAcceptInviteOutcomes(t *testing.T) {
	db, linking, tasks := setupLinkingService(t)
	manager := seedUser(t, db, "manager")
	project := seedProject(t, db, manager.ID)

	parkTask(t, db, tasks, manager.ID, project.ID, "Claimable", "invitee@example.com")

	var invite models.TaskInvite
	require.NoError(t, db.First(&invite, "email = ?", "invitee@example.com").Error)

	// Unknown token.
	_, err := linking.OnAcceptInvite(context.Background(), "bogus", nil)
	require.ErrorIs(t, err, ErrInviteNotFound)

	// Anonymous visitor without an account is sent to registration.
	outcome, err := linking.OnAcceptInvite(context.Background(), invite.Token, nil)
	require.NoError(t, err)
	require.Equal(t, AcceptRegistrationRequired, outcome.Action)
	require.Equal(t, "invitee@example.com", outcome.InvitedEmail)

	// The ledger is untouched by the anonymous visit.
	var stillActive models.TaskInvite
	require.NoError(t, db.First(&stillActive, "id = ?", invite.ID).Error)
	require.True(t, stillActive.Active)

	// A signed-in account with a different email cannot claim the invite.
	stranger := seedUser(t, db, "stranger")
	outcome, err = linking.OnAcceptInvite(context.Background(), invite.Token, stranger)
	require.NoError(t, err)
	require.Equal(t, AcceptWrongAccount, outcome.Action)

	// Once the invited address has an account, anonymous visits ask for login.
	invitee := seedUser(t, db, "invitee")
	outcome, err = linking.OnAcceptInvite(context.Background(), invite.Token, nil)
	require.NoError(t, err)
	require.Equal(t, AcceptLoginRequired, outcome.Action)

	// The matching signed-in account links everything.
	outcome, err = linking.OnAcceptInvite(context.Background(), invite.Token, invitee)
	require.NoError(t, err)
	require.Equal(t, AcceptLinked, outcome.Action)
	require.EqualValues(t, 1, outcome.Result.TasksLinked)
	require.EqualValues(t, 1, outcome.Result.InvitesClosed)

	// The token is spent.
	_, err = linking.OnAcceptInvite(context.Background(), invite.Token, invitee)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestLinkingOnDashboardVisitSweepsPendingWork(t *testing.T) {
	db, linking, tasks := setupLinkingService(t)
	manager := seedUser(t, db, "manager")
	project := seedProject(t, db, manager.ID)

	parkTask(t, db, tasks, manager.ID, project.ID, "Waiting", "wanderer@example.com")

	// The invitee registered without ever following the invite link.
	wanderer := seedUser(t, db, "wanderer")

	result, err := linking.OnDashboardVisit(context.Background(), wanderer)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.TasksLinked)
	require.EqualValues(t, 1, result.InvitesClosed)

	var task models.Task
	require.NoError(t, db.First(&task, "assignee_id = ?", wanderer.ID).Error)
	require.Equal(t, "Waiting", task.Title)
}

func TestLinkingOnDashboardVisitNoPendingWork(t *testing.T) {
	db, linking, _ := setupLinkingService(t)
	user := seedUser(t, db, "quiet")

	result, err := linking.OnDashboardVisit(context.Background(), user)
	require.NoError(t, err)
	require.Zero(t, result.TasksLinked)
	require.Zero(t, result.InvitesClosed)
}

func TestLinkingClosesOrphanInvites(t *testing.T) {
	db, linking, _ := setupLinkingService(t)
	manager := seedUser(t, db, "manager")

	invites, err := NewInviteService(db, nil)
	require.NoError(t, err)
	_, err = invites.Create(context.Background(), "loner@example.com", manager.ID, nil)
	require.NoError(t, err)

	// An invite without any parked task still closes on dashboard visit.
	loner := seedUser(t, db, "loner")
	result, err := linking.OnDashboardVisit(context.Background(), loner)
	require.NoError(t, err)
	require.Zero(t, result.TasksLinked)
	require.EqualValues(t, 1, result.InvitesClosed)
}
