package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/todo/api/handler"
)

type Handlers struct {
	Task     *apiHandler.TaskHandler
	Health   *apiHandler.HealthHandler
	AuthHook *apiHandler.AuthHookHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Protected routes
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	// Identity provider callbacks, guarded by a shared secret
	if handlers.AuthHook.Enabled() {
		r.POST("/api/v1/hooks/post-authentication", handlers.AuthHook.PostAuthentication)
	}

	return r
}
