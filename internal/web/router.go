package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/restfold/restfold/internal/query"
	"github.com/restfold/restfold/internal/schema"
)

// NewRouter mounts CRUD routes for every registered resource under its
// table name, plus a health check and per-resource schema documents.
func NewRouter(registry *schema.Registry, engine *query.Engine, db DB, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Recovery(logger))
	r.Use(Logging(logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		RenderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, name := range registry.List() {
		handler, err := NewResourceHandler(registry, engine, db, logger, name)
		if err != nil {
			return nil, fmt.Errorf("failed to mount resource %s: %w", name, err)
		}

		r.Route("/"+handler.table, func(r chi.Router) {
			r.Get("/", handler.Index)
			r.Post("/", handler.Create)
			r.Get("/schema", handler.Describe)
			r.Get("/{id}", handler.Show)
			r.Patch("/{id}", handler.Update)
			r.Put("/{id}", handler.Update)
			r.Delete("/{id}", handler.Delete)
		})
	}

	return r, nil
}
