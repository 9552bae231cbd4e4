package http

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdeskhq/support-desk/internal/api/http/handlers"
	"github.com/helpdeskhq/support-desk/internal/auth"
	"github.com/helpdeskhq/support-desk/internal/config"
	"github.com/helpdeskhq/support-desk/internal/events"
	"github.com/helpdeskhq/support-desk/internal/observability"
	"github.com/helpdeskhq/support-desk/internal/repository"
	"github.com/helpdeskhq/support-desk/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	users := repository.NewMemoryUserRepository()
	tickets := repository.NewMemoryTicketRepository()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test-secret", BcryptCost: 4}, service.AuthDependencies{UserRepo: users})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		UserRepo:   users,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	reportService := service.NewReportService(service.ReportDependencies{TicketRepo: tickets, Logger: logger})
	service.NewNotificationService(dispatcher, logger).RegisterHandlers()

	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{CORSAllowOrigins: "*"})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("support-desk", "test", nil),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AdminTickets:   handlers.NewAdminTicketsHandler(ticketService, reportService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		Metrics:        metrics,
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, payload
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

type authBody struct {
	User  map[string]any `json:"user"`
	Token string         `json:"token"`
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func signUp(t *testing.T, app *fiber.App, username, role string) authBody {
	t.Helper()
	status, raw := do(t, app, fiber.MethodPost, "/users/signup", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
		"role":     role,
	})
	require.Equal(t, nethttp.StatusCreated, status, string(raw))
	return decode[authBody](t, raw)
}

func TestUsersEndpoints(t *testing.T) {
	app := newTestApp(t)

	alice := signUp(t, app, "alice", "")
	assert.NotEmpty(t, alice.Token)
	assert.Equal(t, "user", alice.User["role"])
	assert.NotContains(t, alice.User, "password_hash")

	t.Run("DuplicateSignUp", func(t *testing.T) {
		status, raw := do(t, app, fiber.MethodPost, "/users/signup", "", map[string]any{
			"username": "alice", "email": "alice@example.com", "password": "secret123",
		})
		assert.Equal(t, nethttp.StatusBadRequest, status)
		assert.Equal(t, "CONFLICT", decode[errorBody](t, raw).Error.Code)
	})

	t.Run("SignIn", func(t *testing.T) {
		status, raw := do(t, app, fiber.MethodPost, "/users/signin", "", map[string]any{
			"email": "alice@example.com", "password": "secret123",
		})
		require.Equal(t, nethttp.StatusOK, status)
		assert.NotEmpty(t, decode[authBody](t, raw).Token)

		status, raw = do(t, app, fiber.MethodPost, "/users/signin", "", map[string]any{
			"email": "alice@example.com", "password": "nope-nope",
		})
		assert.Equal(t, nethttp.StatusBadRequest, status)
		assert.Equal(t, "INVALID_CREDENTIALS", decode[errorBody](t, raw).Error.Code)
	})

	t.Run("ListRequiresToken", func(t *testing.T) {
		status, _ := do(t, app, fiber.MethodGet, "/users", "", nil)
		assert.Equal(t, nethttp.StatusUnauthorized, status)

		status, _ = do(t, app, fiber.MethodGet, "/users", "garbage", nil)
		assert.Equal(t, nethttp.StatusUnauthorized, status)

		status, raw := do(t, app, fiber.MethodGet, "/users", alice.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		assert.NotContains(t, string(raw), "password")
		assert.Len(t, decode[[]map[string]any](t, raw), 1)
	})
}

func TestTicketEndpoints(t *testing.T) {
	app := newTestApp(t)
	admin := signUp(t, app, "root", "admin")
	alice := signUp(t, app, "alice", "")
	bob := signUp(t, app, "bob", "")

	status, raw := do(t, app, fiber.MethodPost, "/tickets", alice.Token, map[string]any{
		"subject":     "Lost bag",
		"description": "Grey suitcase missing",
		"category":    "Lost Baggage",
	})
	require.Equal(t, nethttp.StatusCreated, status, string(raw))
	created := decode[map[string]any](t, raw)
	ticketID := created["id"].(string)
	assert.Equal(t, "Open", created["status"])
	assert.Equal(t, "alice", created["customer"].(map[string]any)["username"])

	t.Run("Categories", func(t *testing.T) {
		status, raw := do(t, app, fiber.MethodGet, "/tickets/categories", alice.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		categories := decode[[]string](t, raw)
		assert.Contains(t, categories, "Lost Baggage")
		assert.Equal(t, "Other", categories[len(categories)-1])
	})

	t.Run("CreateValidation", func(t *testing.T) {
		status, raw := do(t, app, fiber.MethodPost, "/tickets", alice.Token, map[string]any{"subject": "x"})
		assert.Equal(t, nethttp.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_FAILED", decode[errorBody](t, raw).Error.Code)
	})

	t.Run("Visibility", func(t *testing.T) {
		status, raw := do(t, app, fiber.MethodGet, "/tickets/my-tickets/"+ticketID, alice.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		detail := decode[map[string]any](t, raw)
		assert.Equal(t, "root", detail["managing_admin"].(map[string]any)["username"])

		status, _ = do(t, app, fiber.MethodGet, "/tickets/my-tickets/"+ticketID, bob.Token, nil)
		assert.Equal(t, nethttp.StatusForbidden, status)

		status, _ = do(t, app, fiber.MethodGet, "/tickets/my-tickets/missing", alice.Token, nil)
		assert.Equal(t, nethttp.StatusNotFound, status)

		status, raw = do(t, app, fiber.MethodGet, "/tickets/my-tickets", bob.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		assert.Empty(t, decode[[]map[string]any](t, raw))

		status, raw = do(t, app, fiber.MethodGet, "/tickets/my-tickets", admin.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		assert.Len(t, decode[[]map[string]any](t, raw), 1)
	})

	t.Run("AdminOnlyRoutes", func(t *testing.T) {
		for _, path := range []string{"/tickets/all", "/tickets/assigned-to-me", "/tickets/stats"} {
			status, _ := do(t, app, fiber.MethodGet, path, alice.Token, nil)
			assert.Equal(t, nethttp.StatusForbidden, status, path)
		}
		status, _ := do(t, app, fiber.MethodPut, "/tickets/"+ticketID+"/assign", alice.Token, nil)
		assert.Equal(t, nethttp.StatusForbidden, status)

		status, raw := do(t, app, fiber.MethodGet, "/tickets/all", admin.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		all := decode[[]map[string]any](t, raw)
		require.Len(t, all, 1)
		assert.Equal(t, "alice", all[0]["user"].(map[string]any)["username"])
		assert.NotContains(t, all[0], "customer")
	})

	t.Run("UpdateIgnoresProtectedFields", func(t *testing.T) {
		status, raw := do(t, app, fiber.MethodPut, "/tickets/"+ticketID, alice.Token, map[string]any{
			"status":      "In progress",
			"customer_id": bob.User["id"],
			"ticket_key":  "TCK-HACKED",
		})
		require.Equal(t, nethttp.StatusOK, status, string(raw))
		updated := decode[map[string]any](t, raw)
		assert.Equal(t, "In progress", updated["status"])
		assert.Equal(t, alice.User["id"], updated["customer_id"])
		assert.NotEqual(t, "TCK-HACKED", updated["ticket_key"])

		status, _ = do(t, app, fiber.MethodPut, "/tickets/"+ticketID, bob.Token, map[string]any{"subject": "mine"})
		assert.Equal(t, nethttp.StatusForbidden, status)

		status, _ = do(t, app, fiber.MethodPut, "/tickets/"+ticketID, alice.Token, map[string]any{"status": "Archived"})
		assert.Equal(t, nethttp.StatusBadRequest, status)
	})

	t.Run("Reviews", func(t *testing.T) {
		status, raw := do(t, app, fiber.MethodPost, "/tickets/"+ticketID+"/reviews", alice.Token, map[string]any{"text": "R1"})
		require.Equal(t, nethttp.StatusCreated, status, string(raw))
		r1 := decode[map[string]any](t, raw)
		assert.Equal(t, "alice", r1["author"].(map[string]any)["username"])

		status, _ = do(t, app, fiber.MethodPost, "/tickets/"+ticketID+"/reviews", admin.Token, map[string]any{"text": "R2"})
		require.Equal(t, nethttp.StatusCreated, status)

		status, raw = do(t, app, fiber.MethodGet, "/tickets/my-tickets/"+ticketID, alice.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		reviews := decode[map[string]any](t, raw)["reviews"].([]any)
		require.Len(t, reviews, 2)
		assert.Equal(t, "R1", reviews[0].(map[string]any)["text"])
		assert.Equal(t, "R2", reviews[1].(map[string]any)["text"])

		reviewPath := "/tickets/" + ticketID + "/reviews/" + r1["id"].(string)
		status, _ = do(t, app, fiber.MethodPut, reviewPath, bob.Token, map[string]any{"text": "nope"})
		assert.Equal(t, nethttp.StatusForbidden, status)

		status, raw = do(t, app, fiber.MethodPut, reviewPath, alice.Token, map[string]any{"text": "R1 edited"})
		require.Equal(t, nethttp.StatusOK, status)
		assert.Contains(t, decode[map[string]any](t, raw)["message"], "updated")

		status, raw = do(t, app, fiber.MethodDelete, reviewPath, admin.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		assert.Contains(t, decode[map[string]any](t, raw)["message"], "removed")

		status, _ = do(t, app, fiber.MethodDelete, reviewPath, admin.Token, nil)
		assert.Equal(t, nethttp.StatusNotFound, status)
	})

	t.Run("AssignAndStats", func(t *testing.T) {
		status, raw := do(t, app, fiber.MethodPut, "/tickets/"+ticketID+"/assign", admin.Token, nil)
		require.Equal(t, nethttp.StatusOK, status, string(raw))
		assert.Equal(t, admin.User["id"], decode[map[string]any](t, raw)["assigned_to_id"])

		status, raw = do(t, app, fiber.MethodPut, "/tickets/"+ticketID+"/assign", admin.Token, map[string]any{"assignee_id": bob.User["id"]})
		assert.Equal(t, nethttp.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_FAILED", decode[errorBody](t, raw).Error.Code)

		status, raw = do(t, app, fiber.MethodGet, "/tickets/assigned-to-me", admin.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		assert.Len(t, decode[[]map[string]any](t, raw), 1)

		status, raw = do(t, app, fiber.MethodGet, "/tickets/stats?groupBy=month", admin.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		stats := decode[map[string]any](t, raw)
		assert.Equal(t, []any{float64(1)}, stats["data"])
		assert.Len(t, stats["labels"], 1)

		status, _ = do(t, app, fiber.MethodGet, "/tickets/stats?groupBy=year", admin.Token, nil)
		assert.Equal(t, nethttp.StatusBadRequest, status)
	})

	t.Run("Delete", func(t *testing.T) {
		status, _ := do(t, app, fiber.MethodDelete, "/tickets/"+ticketID, bob.Token, nil)
		assert.Equal(t, nethttp.StatusForbidden, status)

		status, raw := do(t, app, fiber.MethodDelete, "/tickets/"+ticketID, alice.Token, nil)
		require.Equal(t, nethttp.StatusOK, status)
		assert.Equal(t, ticketID, decode[map[string]any](t, raw)["id"])

		status, _ = do(t, app, fiber.MethodDelete, "/tickets/"+ticketID, alice.Token, nil)
		assert.Equal(t, nethttp.StatusNotFound, status)
	})
}

func TestOperationalEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, raw := do(t, app, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, string(raw), "alive")

	status, _ = do(t, app, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)

	status, raw = do(t, app, fiber.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, raw).Error.Code)

	status, raw = do(t, app, fiber.MethodGet, "/metrics", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, string(raw), "support_desk_http_requests_total")
}
