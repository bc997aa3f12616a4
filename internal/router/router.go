package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/pprofhandler"

	apiHandler "github.com/fastygo/taskboard/api/handler"
)

// Options toggles optional routes.
type Options struct {
	EnablePprof bool
}

type Handlers struct {
	Auth      *apiHandler.AuthHandler
	Task      *apiHandler.TaskHandler
	Category  *apiHandler.CategoryHandler
	Dashboard *apiHandler.DashboardHandler
	Health    *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler, opts Options) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	if opts.EnablePprof {
		r.GET("/debug/pprof/{profile:*}", pprofhandler.PprofHandler)
	}

	// Auth routes
	r.POST("/api/v1/auth/signup", handlers.Auth.SignUp)
	r.POST("/api/v1/auth/signin", handlers.Auth.SignIn)
	r.POST("/api/v1/auth/refresh", authMiddleware(handlers.Auth.Refresh))
	r.POST("/api/v1/auth/signout", authMiddleware(handlers.Auth.SignOut))
	r.GET("/api/v1/auth/me", authMiddleware(handlers.Auth.Me))

	// Protected routes
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.POST("/api/v1/tasks/reconcile", authMiddleware(handlers.Task.Reconcile))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.PATCH("/api/v1/tasks/{id}/status", authMiddleware(handlers.Task.UpdateStatus))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	r.GET("/api/v1/categories", authMiddleware(handlers.Category.GetCategories))
	r.POST("/api/v1/categories", authMiddleware(handlers.Category.CreateCategory))
	r.DELETE("/api/v1/categories/{id}", authMiddleware(handlers.Category.DeleteCategory))

	r.GET("/api/v1/dashboard", authMiddleware(handlers.Dashboard.GetDashboard))
	r.GET("/api/v1/drift", authMiddleware(handlers.Dashboard.GetDrift))

	return r
}
