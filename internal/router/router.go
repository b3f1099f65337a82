package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-space-reservation/internal/handler"
	"github.com/iliyamo/parking-space-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes and the protected
// /v1/me probe.  Unauthenticated operations live under /v1/auth; the
// probe group applies the JWT middleware with the provided secret.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterUsers registers the user registry CRUD under /v1/users.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler) {
	g := e.Group("/v1/users")
	g.GET("", u.List)
	g.GET("/:id", u.GetByID)
	g.PUT("/:id", u.Update)
	g.DELETE("/:id", u.Delete)
}

// RegisterRegistry registers branch and parking-space management routes.
// Branch deletion and space deletion are guarded inside the handlers, so
// no extra middleware is applied here.
func RegisterRegistry(e *echo.Echo, b *handler.BranchHandler, s *handler.SpaceHandler) {
	bg := e.Group("/v1/branches")
	bg.GET("", b.List)
	bg.GET("/:id", b.GetByID)
	bg.POST("", b.Create)
	bg.PUT("/:id", b.Update)
	bg.DELETE("/:id", b.Delete)
	bg.GET("/:id/spaces", s.ListByBranch)

	sg := e.Group("/v1/spaces")
	sg.GET("", s.List)
	sg.GET("/:id", s.GetByID)
	sg.POST("", s.Create)
	sg.PUT("/:id", s.Update)
	sg.DELETE("/:id", s.Delete)
}

// RegisterAvailability registers the free/occupied query routes.  The
// free and occupied day views live under /v1/spaces; the range and
// window views are scoped to a branch.
func RegisterAvailability(e *echo.Echo, a *handler.AvailabilityHandler) {
	e.GET("/v1/spaces/free", a.FreeOnDate)
	e.GET("/v1/spaces/occupied", a.OccupiedOnDate)
	e.GET("/v1/branches/:id/spaces/occupied", a.OccupiedInRange)
	e.GET("/v1/branches/:id/spaces/available", a.FreeForWindow)
}

// RegisterReservations registers the reservation lifecycle routes.
func RegisterReservations(e *echo.Echo, r *handler.ReservationHandler) {
	e.POST("/v1/reservations", r.Create)
	e.DELETE("/v1/reservations/:id", r.Cancel)
	e.GET("/v1/users/:id/reservations/active", r.ListActiveForUser)
}
