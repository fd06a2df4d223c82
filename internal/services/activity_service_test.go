package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActivityServiceRecordAndList(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedUser(t, db, "actor")

	svc, err := NewActivityService(db)
	require.NoError(t, err)

	require.NoError(t, svc.Record(context.Background(), ActivityEntry{
		UserID:   &user.ID,
		Action:   "task.create",
		Resource: "task-123",
		Metadata: map[string]any{"title": "Write docs"},
	}))
	require.NoError(t, svc.Record(context.Background(), ActivityEntry{
		Action: "tasks.link",
		Metadata: map[string]any{
			"trigger":      "register",
			"tasks_linked": 2,
		},
	}))

	entries, total, err := svc.List(context.Background(), ActivityListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, entries, 2)

	entries, total, err = svc.List(context.Background(), ActivityListOptions{
		Filters: ActivityFilters{UserID: user.ID},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "task.create", entries[0].Action)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Metadata, &metadata))
	require.Equal(t, "Write docs", metadata["title"])
}

func TestActivityServiceRequiresAction(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewActivityService(db)
	require.NoError(t, err)

	require.Error(t, svc.Record(context.Background(), ActivityEntry{Action: "  "}))
}
