package handler_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-teaching-api/internal/dto"
	"github.com/noah-isme/gema-teaching-api/internal/handler"
	"github.com/noah-isme/gema-teaching-api/internal/models"
	"github.com/noah-isme/gema-teaching-api/internal/service"
)

type mockActivityService struct {
	lastRequest dto.ActivityListRequest
	response    dto.ActivityListResponse
	err         error
}

func (m *mockActivityService) Record(context.Context, service.ActivityEntry) (dto.ActivityResponse, error) {
	return dto.ActivityResponse{}, nil
}

func (m *mockActivityService) List(_ context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	m.lastRequest = req
	if m.err != nil {
		return dto.ActivityListResponse{}, m.err
	}
	return m.response, nil
}

func newActivityApp(svc service.ActivityService) *fiber.App {
	app := fiber.New()
	handler.NewAdminActivityHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v2/admin/activity-logs"))
	return app
}

func TestAdminActivityHandler_ListPassesFilters(t *testing.T) {
	svc := &mockActivityService{response: dto.ActivityListResponse{
		Items: []dto.ActivityResponse{{
			ID:          "log-1",
			ActionType:  models.ActivityActionAdd,
			Entity:      models.TeachingLearningEntity,
			Description: `Added "Flipped Classroom" to Pedagogical Innovations`,
			UserID:      "user-1",
			Timestamp:   time.Now().UTC(),
		}},
		Pagination: dto.PaginationMeta{Page: 2, PageSize: 5, TotalItems: 6, TotalPages: 2},
	}}
	app := newActivityApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/admin/activity-logs?page=2&page_size=5&user_id=user-1&action_type=add", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Data    []dto.ActivityResponse `json:"data"`
		Meta    dto.PaginationMeta     `json:"meta"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Len(t, body.Data, 1)
	require.Equal(t, int64(6), body.Meta.TotalItems)

	require.Equal(t, 2, svc.lastRequest.Page)
	require.Equal(t, 5, svc.lastRequest.PageSize)
	require.Equal(t, "user-1", svc.lastRequest.UserID)
	require.Equal(t, "add", svc.lastRequest.ActionType)
}

func TestAdminActivityHandler_InvalidPage(t *testing.T) {
	app := newActivityApp(&mockActivityService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/admin/activity-logs?page=oops", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminActivityHandler_UnsupportedAction(t *testing.T) {
	app := newActivityApp(&mockActivityService{err: service.ErrUnsupportedActionType})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/admin/activity-logs?action_type=publish", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminActivityHandler_ServiceError(t *testing.T) {
	app := newActivityApp(&mockActivityService{err: errors.New("boom")})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/admin/activity-logs", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
