// Package server exposes the advisor over HTTP: market-entry scoring,
// business-insights uploads, the consulting advisor, and a health check.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/market-advisor/internal/config"
	"github.com/sells-group/market-advisor/internal/narrative"
	"github.com/sells-group/market-advisor/internal/weights"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// Options wires a Server.
type Options struct {
	Config config.ServerConfig
	// DataCSV is the configured country dataset path. MARKET_DATA_CSV
	// overrides it when set to an existing file.
	DataCSV string
	// DataPath pins the dataset, bypassing MARKET_DATA_CSV. Empty means
	// resolve DataCSV.
	DataPath string
	Rules    *weights.Table
	// Generator produces narrative text. nil means fallback text only.
	Generator narrative.Generator
	// Now anchors revenue forecasts. Defaults to time.Now.
	Now func() time.Time
}

// Server routes API requests to the scoring and analysis pipelines.
type Server struct {
	cfg       config.ServerConfig
	dataCSV   string
	dataPath  string
	rules     *weights.Table
	explainer *narrative.Explainer
	advisor   *narrative.Advisor
	now       func() time.Time
	router    chi.Router
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		cfg:       opts.Config,
		dataCSV:   opts.DataCSV,
		dataPath:  opts.DataPath,
		rules:     opts.Rules,
		explainer: narrative.NewExplainer(opts.Rules, opts.Generator),
		advisor:   narrative.NewAdvisor(opts.Generator),
		now:       opts.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(logRequests)
	r.Use(recoverPanics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(newRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst).middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Status: statusError, Message: "Route not found."})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Status: statusError, Message: "Method not allowed."})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/market-entry", s.handleMarketEntry)
		r.Post("/business-insights", s.handleBusinessInsights)
		r.Post("/advisor", s.handleAdvisor)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
