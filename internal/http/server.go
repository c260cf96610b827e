package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus"

	"biodivscope-backend-go/internal/config"
	"biodivscope-backend-go/internal/geocode"
	"biodivscope-backend-go/internal/mitigation"
	"biodivscope-backend-go/internal/services"
)

const apiVersion = "1.0.0"

type Pinger interface {
	PingContext(ctx context.Context) error
}

type AccountService interface {
	Signup(ctx context.Context, in services.SignupInput) (services.Account, error)
	Login(ctx context.Context, email, password string) (services.Session, error)
	Get(ctx context.Context, id int64) (services.Account, error)
}

type LocationService interface {
	NearbySpecies(ctx context.Context, lat, lon, radiusKm float64) ([]services.SpeciesRisk, error)
	NearbyInvasive(ctx context.Context, lat, lon, radiusKm float64) ([]services.InvasiveSighting, error)
	NearestCells(ctx context.Context, domain string, lat, lon float64, limit int) ([]services.GridCell, error)
}

// Deps are the collaborators a Server needs. DB may be nil when the
// database is unreachable; status endpoints then report it as disconnected.
// A nil Advisor leaves the mitigation routes unregistered.
type Deps struct {
	DB        Pinger
	Accounts  AccountService
	Locations LocationService
	Geocoder  geocode.Geocoder
	Advisor   mitigation.Advisor
	Tokens    services.TokenService
	Sessions  sessions.Store
	Registry  *prometheus.Registry
	Logger    *slog.Logger
}

type Server struct {
	Config    config.Config
	DB        Pinger
	Accounts  AccountService
	Locations LocationService
	Geocoder  geocode.Geocoder
	Advisor   mitigation.Advisor
	Tokens    services.TokenService
	Sessions  sessions.Store
	Logger    *slog.Logger

	metrics *httpMetrics
}

func NewServer(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Accounts == nil || deps.Locations == nil || deps.Geocoder == nil {
		return nil, errors.New("accounts, locations and geocoder are required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	metrics, err := newHTTPMetrics(registry)
	if err != nil {
		return nil, err
	}
	return &Server{
		Config:    cfg,
		DB:        deps.DB,
		Accounts:  deps.Accounts,
		Locations: deps.Locations,
		Geocoder:  deps.Geocoder,
		Advisor:   deps.Advisor,
		Tokens:    deps.Tokens,
		Sessions:  deps.Sessions,
		Logger:    logger,
		metrics:   metrics,
	}, nil
}

func (s *Server) corsOptions() cors.Options {
	origins := []string{"*"}
	if s.Config.IsProduction() && len(s.Config.CorsOrigins) > 0 {
		origins = s.Config.CorsOrigins
	}
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if origins[0] == "*" {
		// a literal "*" cannot be combined with credentials, so echo the origin
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(r *http.Request, origin string) bool { return true }
	}
	return opts
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recoverer(s.Logger))
	r.Use(RequestLogger(s.Logger, !s.Config.IsProduction()))
	r.Use(s.metrics.Middleware)
	r.Use(cors.Handler(s.corsOptions()))

	r.Get("/", s.Health)
	r.Get("/health", s.Health)
	r.Get("/test", s.Test)
	r.Get("/session-risks", s.SessionRisks)
	r.Get("/address-autocomplete", s.AddressAutocomplete)
	r.Get("/api/test", s.APITest)
	r.Get("/api/status", s.APIStatus)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	if s.Config.Features.DebugEndpoints {
		r.Get("/debug", s.Debug)
	}

	r.Route("/account", func(account chi.Router) {
		account.Get("/test", s.AccountTest)
		account.Post("/signup", s.Signup)
		account.Post("/login", s.Login)
		account.With(WithAuth(s.Tokens)).Get("/me", s.Me)
	})

	r.Route("/locations", func(locations chi.Router) {
		locations.Get("/test", s.LocationsTest)
		locations.Get("/species-risks", s.SpeciesRisks)
		locations.Get("/invasive", s.InvasiveSpecies)
		locations.Get("/grid/{domain}", s.GridCells)
	})

	if s.Advisor != nil {
		r.Route("/mitigation", func(m chi.Router) {
			m.Post("/report", s.MitigationReport)
			m.Get("/action", s.MitigationAction)
			m.Get("/threat-level", s.ThreatLevel)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
