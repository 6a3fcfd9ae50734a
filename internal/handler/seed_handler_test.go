package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-teaching-api/internal/handler"
	"github.com/noah-isme/gema-teaching-api/internal/models"
	"github.com/noah-isme/gema-teaching-api/internal/service"
)

type mockSeedService struct {
	err          error
	lastToken    string
	lastTeachers []models.Teacher
	affected     int64
}

func (m *mockSeedService) SeedTeachers(_ context.Context, token string, items []models.Teacher) (int64, error) {
	m.lastToken = token
	m.lastTeachers = items
	if m.err != nil {
		return 0, m.err
	}
	return m.affected, nil
}

func seedRequest(t *testing.T, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/seed/teachers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Seed-Token", "secret")
	return req
}

func TestSeedHandler_TeachersSuccess(t *testing.T) {
	svc := &mockSeedService{affected: 2}
	app := fiber.New()
	handler.NewSeedHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/seed"))

	body, err := json.Marshal(map[string]interface{}{"items": []models.Teacher{{ID: "user-1", Name: "Ada"}, {ID: "user-2"}}})
	require.NoError(t, err)

	resp, err := app.Test(seedRequest(t, body))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Affected int64 `json:"affected"`
		} `json:"data"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, int64(2), response.Data.Affected)
	require.Equal(t, "secret", svc.lastToken)
	require.Len(t, svc.lastTeachers, 2)
}

func TestSeedHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
		message    string
	}{
		{name: "disabled", err: service.ErrSeedDisabled, statusCode: fiber.StatusForbidden, message: "seeding disabled"},
		{name: "unauthorized", err: service.ErrSeedUnauthorized, statusCode: fiber.StatusForbidden, message: "invalid token"},
		{name: "blank id", err: fmt.Errorf("%w: teacher 0 has no id", service.ErrSeedInvalidPayload), statusCode: fiber.StatusBadRequest, message: "invalid seed payload: teacher 0 has no id"},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError, message: "seed operation failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockSeedService{err: tc.err}
			app := fiber.New()
			handler.NewSeedHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/seed"))

			body, err := json.Marshal(map[string]interface{}{"items": []models.Teacher{{ID: "user-1"}}})
			require.NoError(t, err)

			resp, err := app.Test(seedRequest(t, body))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var response struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			decodeResponse(t, resp, &response)
			require.False(t, response.Success)
			require.Equal(t, tc.message, response.Message)
		})
	}
}

func TestSeedHandler_InvalidPayload(t *testing.T) {
	svc := &mockSeedService{}
	app := fiber.New()
	handler.NewSeedHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/seed"))

	resp, err := app.Test(seedRequest(t, []byte("not json")))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Nil(t, svc.lastTeachers)
}
