// Package httpapi assembles the full HTTP surface: middleware chain, domain
// handlers, token minting, health, and Prometheus metrics.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "quorum/internal/jwt_token"
	"quorum/internal/platform/metrics"
	"quorum/internal/platform/middleware"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/httputil"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// Config wires the router's collaborators.
type Config struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Ticks       middleware.TickSource
	JWT         *jwttoken.JWTService
	TokenExpiry time.Duration
	Handlers    []Registrar
}

// NewRouter builds the chi router. Authenticated domain routes sit behind the
// bearer-token middleware; /healthz, /metrics, and /auth/token stay open.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.WithRequestID)
	r.Use(middleware.WithTick(cfg.Ticks))
	r.Use(cfg.Metrics.Middleware)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/auth/token", handleMintToken(cfg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCaller(cfg.JWT, cfg.Logger))
		for _, handler := range cfg.Handlers {
			handler.Register(r)
		}
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type mintTokenRequest struct {
	Principal string `json:"principal"`
}

type mintTokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// handleMintToken issues a caller-identity token. The endpoint trusts the
// network perimeter: the engine treats identity as asserted by the host, and
// authorization always goes through the member registry.
func handleMintToken(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := httputil.Decode[mintTokenRequest](w, r, cfg.Logger)
		if !ok {
			return
		}
		principal, err := id.ParsePrincipal(req.Principal)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		token, err := cfg.JWT.GenerateToken(principal, cfg.TokenExpiry)
		if err != nil {
			cfg.Logger.ErrorContext(r.Context(), "token minting failed", "error", err)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, mintTokenResponse{
			Token:     token,
			TokenType: "Bearer",
			ExpiresIn: int64(cfg.TokenExpiry.Seconds()),
		})
	}
}
