package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-teaching-api/internal/dto"
	"github.com/noah-isme/gema-teaching-api/internal/models"
	"github.com/noah-isme/gema-teaching-api/internal/repository"
)

type memoryActivityRepo struct {
	entries    []models.ActivityLog
	lastFilter repository.ActivityLogFilter
}

func (m *memoryActivityRepo) Create(_ context.Context, entry *models.ActivityLog) error {
	entry.ID = fmt.Sprintf("log-%d", len(m.entries)+1)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(_ context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	m.lastFilter = filter
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksEmail(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    "user-1",
		ActorRole:  "Teacher",
		ActionType: "add",
		Entity:     models.TeachingLearningEntity,
		EntityID:   "entry-1",
		Metadata: map[string]interface{}{
			"teacher_email": "ada@example.com",
			"category":      models.CategoryCourseDesign,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["teacher_email"])
	require.Equal(t, models.CategoryCourseDesign, entry.Metadata["category"])
	require.Equal(t, models.ActivityActionAdd, entry.ActionType)
	require.Equal(t, "teacher", entry.UserRole)
	require.Equal(t, "user-1", entry.UserID)
	require.WithinDuration(t, time.Now().UTC(), entry.Timestamp, 2*time.Second)
}

func TestActivityServiceRejectsInvalidEntries(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{ActorID: "user-1", ActionType: "publish", Entity: "X"})
	require.True(t, IsUnsupportedActionType(err))

	_, err = svc.Record(context.Background(), ActivityEntry{ActorID: "user-1", ActionType: "Edit"})
	require.Error(t, err)

	_, err = svc.Record(context.Background(), ActivityEntry{ActionType: "Delete", Entity: "X"})
	require.Error(t, err)
}

func TestActivityServiceListPagination(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())
	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), ActivityEntry{
			ActorID: "user-1", ActionType: "Delete", Entity: models.TeachingLearningEntity,
		})
		require.NoError(t, err)
	}

	response, err := svc.List(context.Background(), dto.ActivityListRequest{Page: 0, PageSize: 2, ActionType: "delete"})
	require.NoError(t, err)
	require.Len(t, response.Items, 3)
	require.Equal(t, 1, response.Pagination.Page)
	require.Equal(t, 2, response.Pagination.PageSize)
	require.Equal(t, int64(3), response.Pagination.TotalItems)
	require.Equal(t, 2, response.Pagination.TotalPages)
	require.Equal(t, models.ActivityActionDelete, repo.lastFilter.ActionType)

	_, err = svc.List(context.Background(), dto.ActivityListRequest{ActionType: "publish"})
	require.True(t, IsUnsupportedActionType(err))
}
