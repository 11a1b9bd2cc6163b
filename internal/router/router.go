// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/handler"
	"github.com/iliyamo/user-auth-service/internal/middleware"
	"github.com/iliyamo/user-auth-service/internal/model"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	AccessGate  echo.MiddlewareFunc // validates the access token, attaches identity
	RefreshGate echo.MiddlewareFunc // extracts the refresh token (cookie or body)
	RateLimit   echo.MiddlewareFunc // token-bucket limiter for the auth group
}

// Register mounts all routes. The auth group is rate limited; the user CRUD
// group additionally requires the admin role.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	// Session lifecycle. Register/login/refresh are reachable without an
	// existing session; logout requires a valid access token.
	authGroup := e.Group("/v1/auth", d.RateLimit)
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)
	authGroup.POST("/refresh", d.Auth.Refresh, d.RefreshGate)
	authGroup.POST("/logout", d.Auth.Logout, d.AccessGate)

	// Authenticated surface.
	me := e.Group("/v1/users", d.AccessGate)
	me.GET("/me", d.Auth.Me)

	// Admin-gated user CRUD. RequireRole runs after the access gate has
	// populated the identity.
	admin := e.Group("/v1/users", d.AccessGate, middleware.RequireRole(model.RoleAdmin))
	admin.POST("", d.Users.Create)
	admin.GET("", d.Users.List)
	admin.GET("/:id", d.Users.Get)
	admin.PUT("/:id", d.Users.Update)
	admin.DELETE("/:id", d.Users.Delete)
}
