package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/profilegen/profilegen-api/internal/api"
	apiMiddleware "github.com/profilegen/profilegen-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	profileHandler := api.NewProfileHandler(app.orchestrator)
	orgHandler := api.NewOrgHandler(app.index, app.resolver)

	r.Route("/api", func(r chi.Router) {
		// Task submission and lifecycle
		r.Post("/profiles", profileHandler.CreateProfile)
		r.Get("/tasks/{id}", profileHandler.GetTaskStatus)
		r.Get("/tasks/{id}/result", profileHandler.GetTaskResult)
		r.Delete("/tasks/{id}", profileHandler.CancelTask)

		// Organization views
		r.Get("/org/search", orgHandler.SearchUnits)
		r.Get("/org/units", orgHandler.GetUnits)
		r.Get("/org/resolve", orgHandler.ResolveContext)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if !app.index.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
