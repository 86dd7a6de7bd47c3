package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/taskflow/api/handler"
	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/internal/middleware"
)

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	Profile *apiHandler.ProfileHandler
	Task    *apiHandler.TaskHandler
	Health  *apiHandler.HealthHandler
	// Metrics is optional; /metrics is only mounted when set.
	Metrics fasthttp.RequestHandler
}

// New mounts every route. authMiddleware guards everything under /api except
// sign-up and sign-in.
func New(handlers Handlers, authMiddleware middleware.Middleware) *router.Router {
	r := router.New()
	r.SaveMatchedRoutePath = true
	r.NotFound = apiHandler.NotFound

	r.GET("/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		r.GET("/metrics", handlers.Metrics)
	}

	api := r.Group("/api")

	// Auth routes
	api.POST("/auth/sign-up", handlers.Auth.SignUp)
	api.POST("/auth/sign-in", handlers.Auth.SignIn)

	protected := func(h fasthttp.RequestHandler, guards ...middleware.Middleware) fasthttp.RequestHandler {
		return middleware.Chain(h, append([]middleware.Middleware{authMiddleware}, guards...)...)
	}
	managers := middleware.RequireRole(domain.RoleManager, domain.RoleAdmin)
	admins := middleware.RequireRole(domain.RoleAdmin)

	api.GET("/auth/me", protected(handlers.Profile.GetProfile))

	api.GET("/tasks", protected(handlers.Task.ListTasks))
	api.GET("/tasks/assigned/me", protected(handlers.Task.ListAssigned))
	api.GET("/tasks/created/me", protected(handlers.Task.ListCreated))
	api.GET("/tasks/{id}", protected(handlers.Task.GetTask))
	api.GET("/tasks/{id}/logs", protected(handlers.Task.ListLogs))
	api.POST("/tasks", protected(handlers.Task.CreateTask, managers))
	api.PUT("/tasks/{id}", protected(handlers.Task.UpdateTask))
	api.DELETE("/tasks/{id}", protected(handlers.Task.DeleteTask, admins))

	api.GET("/activity", protected(handlers.Task.ListActivity, admins))

	return r
}
