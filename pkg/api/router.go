package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetRouter initialises a new http router and applies all routes
func GetRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	return applyRoutes(r, s)
}

func applyRoutes(r chi.Router, s *Server) chi.Router {
	r.Route("/", func(r chi.Router) {
		r.Get("/", s.getIndex)
		r.Route("/tables/{name}", func(r chi.Router) {
			r.Get("/", s.getTable)
			r.Put("/", s.putTable)
			r.Post("/", s.postTable)
		})
	})

	return r
}
