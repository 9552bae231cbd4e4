package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/helpdeskhq/support-desk/internal/api/http/handlers"
	"github.com/helpdeskhq/support-desk/internal/auth"
	"github.com/helpdeskhq/support-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	users := app.Group("/users")
	users.Post("/signup", cfg.Users.SignUp)
	users.Post("/signin", cfg.Users.SignIn)
	users.Get("/", cfg.AuthMiddleware.Handle, cfg.Users.List)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	admin := auth.RequireAdmin()

	tickets.Get("/categories", cfg.Tickets.Categories)
	tickets.Get("/my-tickets", cfg.Tickets.ListMine)
	tickets.Get("/my-tickets/:id", cfg.Tickets.GetMine)
	tickets.Get("/all", admin, cfg.AdminTickets.ListAll)
	tickets.Get("/assigned-to-me", admin, cfg.AdminTickets.ListAssignedToMe)
	tickets.Get("/stats", admin, cfg.AdminTickets.Stats)

	tickets.Post("/", cfg.Tickets.Create)
	tickets.Put("/:id", cfg.Tickets.Update)
	tickets.Delete("/:id", cfg.Tickets.Delete)
	tickets.Put("/:id/assign", admin, cfg.AdminTickets.Assign)

	tickets.Post("/:id/reviews", cfg.Tickets.AddReview)
	tickets.Put("/:id/reviews/:reviewId", cfg.Tickets.UpdateReview)
	tickets.Delete("/:id/reviews/:reviewId", cfg.Tickets.RemoveReview)
}
