package server

import (
	"fmt"
	"net/http"
	"time"

	httpLogger "github.com/chi-middleware/logrus-logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"github.com/vitrinhq/vitrin/internal"
	"github.com/vitrinhq/vitrin/pkg/auth"
	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/server/apihandlers"
)

var log = internal.GetLogger()

const ReadHeaderTimeout = 5 * time.Second

// Create creates a new HTTP server with the given app state
func Create(appState *models.AppState) (*http.Server, error) {
	router, err := setupRouter(appState)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", appState.Config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}, nil
}

// @title						Vitrin REST API
// @version					0.x
// @BasePath					/api/v1
// @schemes					http https
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description				Type "Bearer" followed by a space and JWT token.
func setupRouter(appState *models.AppState) (*chi.Mux, error) {
	router := chi.NewRouter()
	router.Use(httpLogger.Logger("router", log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(SendVersion)
	router.Use(middleware.Heartbeat("/healthz"))
	if maxSize := appState.Config.Server.MaxRequestSize; maxSize > 0 {
		router.Use(middleware.RequestSize(int64(maxSize)))
	}

	if appState.Config.Auth.Required {
		log.Info("JWT authentication required")
		verifier, err := auth.JWTVerifier(appState.Config)
		if err != nil {
			return nil, err
		}
		router.Use(verifier)
		router.Use(jwtauth.Authenticator)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", apihandlers.CreateProductHandler(appState))
			r.Post("/search", apihandlers.SearchProductsHandler(appState))
			r.Post("/voice_search", apihandlers.VoiceSearchProductsHandler(appState))

			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", apihandlers.GetProductHandler(appState))
				r.Put("/", apihandlers.UpdateProductHandler(appState))
				r.Delete("/", apihandlers.DeleteProductHandler(appState))

				r.Get("/analysis", apihandlers.GetProductAnalysisHandler(appState))

				r.Route("/reviews", func(r chi.Router) {
					r.Get("/", apihandlers.ListReviewsHandler(appState))
					r.Post("/", apihandlers.CreateReviewHandler(appState))
					r.Route("/{reviewId}", func(r chi.Router) {
						r.Get("/", apihandlers.GetReviewHandler(appState))
						r.Put("/", apihandlers.UpdateReviewHandler(appState))
						r.Delete("/", apihandlers.DeleteReviewHandler(appState))
					})
				})
			})
		})
	})

	return router, nil
}
