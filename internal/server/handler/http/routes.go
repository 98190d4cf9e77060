package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/middleware"
)

// NewRouter constructs the vault HTTP handler.
//
// Routes:
//
//	GET    /oauth/authorize  → authHandler.Authorize
//	POST   /oauth/token      → authHandler.Token
//	GET    /api/objects      → objectHandler.List
//	GET    /api/objects/*    → objectHandler.Get
//	PUT    /api/objects/*    → objectHandler.Put
//	DELETE /api/objects/*    → objectHandler.Delete
//	GET    /api/metadata     → objectHandler.GetMetadata
//	PUT    /api/metadata     → objectHandler.PutMetadata
//	GET    /api/quota        → objectHandler.Quota
//
// Everything under /api requires a bearer token validated by auth.
func NewRouter(
	authHandler *AuthHandler,
	objectHandler *ObjectHandler,
	auth func(http.Handler) http.Handler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/oauth", func(r chi.Router) {
		r.Get("/authorize", authHandler.Authorize)
		r.With(chiMiddleware.AllowContentType("application/json")).Post("/token", authHandler.Token)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Get("/objects", objectHandler.List)
		r.Get("/objects/*", objectHandler.Get)
		r.Put("/objects/*", objectHandler.Put)
		r.Delete("/objects/*", objectHandler.Delete)
		r.Get("/metadata", objectHandler.GetMetadata)
		r.Put("/metadata", objectHandler.PutMetadata)
		r.Get("/quota", objectHandler.Quota)
	})

	return r
}
