package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-system/internal/observability"
	apperrors "github.com/supportdesk/ticket-system/pkg/util"
)

func newTestApp(t *testing.T) (*fiber.App, *observability.Metrics) {
	t.Helper()
	app := fiber.New()
	metrics := observability.NewMetrics()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	return app, metrics
}

func doRequest(t *testing.T, app *fiber.App, method, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestErrorMiddleware_TransitionRejected(t *testing.T) {
	app, _ := newTestApp(t)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return apperrors.NewTransitionRejected("ticket is closed and cannot be modified",
			map[string]any{"ticket_id": 7})
	})

	status, body := doRequest(t, app, http.MethodGet, "/boom")

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, apperrors.CodeTransitionRejected, body["code"])
	assert.Equal(t, "ticket is closed and cannot be modified", body["message"])
	require.Contains(t, body, "details")
}

func TestErrorMiddleware_ValidationFailed(t *testing.T) {
	app, _ := newTestApp(t)
	app.Post("/tickets", func(c *fiber.Ctx) error {
		return apperrors.NewValidationError("subject is required", nil)
	})

	status, body := doRequest(t, app, http.MethodPost, "/tickets")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidationFailed, body["code"])
	assert.NotContains(t, body, "details")
}

func TestErrorMiddleware_PersistenceErrorStaysGeneric(t *testing.T) {
	app, _ := newTestApp(t)
	app.Get("/db", func(c *fiber.Ctx) error {
		return apperrors.NewPersistenceError(assert.AnError)
	})

	status, body := doRequest(t, app, http.MethodGet, "/db")

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "storage operation failed", body["message"])
	assert.NotContains(t, body["message"], assert.AnError.Error())
}

func TestErrorMiddleware_PanicRecovered(t *testing.T) {
	app, _ := newTestApp(t)
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	status, body := doRequest(t, app, http.MethodGet, "/panic")

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodePersistenceError, body["code"])
}

func TestRequestLogger_CountsRequests(t *testing.T) {
	app, metrics := newTestApp(t)
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})

	status, _ := doRequest(t, app, http.MethodGet, "/ok")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, int64(1), metrics.RequestTotal("/ok", http.MethodGet, http.StatusOK))
}
