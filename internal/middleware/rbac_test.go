package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newRoleApp(role interface{}) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != nil {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Use(RequireRole(RoleAdmin, RoleTeacher))
	app.Get("/panel", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRoleAllowsAuthorizedRoles(t *testing.T) {
	for _, role := range []string{"admin", "Teacher", " teacher "} {
		resp, err := newRoleApp(role).Test(httptest.NewRequest(http.MethodGet, "/panel", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, role)
	}
}

func TestRequireRoleRejectsUnauthorizedRoles(t *testing.T) {
	resp, err := newRoleApp("student").Test(httptest.NewRequest(http.MethodGet, "/panel", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireRoleRejectsMissingRole(t *testing.T) {
	resp, err := newRoleApp(nil).Test(httptest.NewRequest(http.MethodGet, "/panel", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
