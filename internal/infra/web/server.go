package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"trading-journal/internal/infra/logging"
	"trading-journal/internal/infra/metrics"
	"trading-journal/internal/usecase"
)

// Server wires the HTTP surface: authenticated journal and billing routes,
// the webhook intake, and the operational endpoints.
type Server struct {
	entitlement usecase.EntitlementUseCase
	portfolio   usecase.PortfolioUseCase
	reconciler  usecase.ReconcilerUseCase

	jwtSecret     string
	webhookSecret string
	log           *zerolog.Logger
}

func NewServer(
	entitlement usecase.EntitlementUseCase,
	portfolio usecase.PortfolioUseCase,
	reconciler usecase.ReconcilerUseCase,
	jwtSecret, webhookSecret string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		entitlement:   entitlement,
		portfolio:     portfolio,
		reconciler:    reconciler,
		jwtSecret:     jwtSecret,
		webhookSecret: webhookSecret,
		log:           &l,
	}
}

// Router builds the chi router. The webhook route is outside auth: it is
// authenticated by signature, not by bearer token.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/subscriptions/webhook", s.webhookHandler)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/create-checkout-session", s.createCheckoutSessionHandler)
				r.Post("/create-portal-session", s.createPortalSessionHandler)
				r.Get("/status", s.subscriptionStatusHandler)
				r.Get("/payment-history", s.paymentHistoryHandler)
				r.Post("/cancel", s.cancelSubscriptionHandler)
				r.Post("/reactivate", s.reactivateSubscriptionHandler)
			})

			r.Route("/portfolio", func(r chi.Router) {
				r.Post("/positions", s.openPositionHandler)
				r.Patch("/positions/close", s.closePositionHandler)
				// The dashboard is the paid feature; open/close stay
				// available so the journal never loses data.
				r.With(s.requireAccess).Post("/dashboard", s.dashboardHandler)
			})
		})
	})
	return r
}

// requestLogger attaches a request id, logs one line per request and feeds
// the HTTP metrics.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := chimw.GetReqID(r.Context())
		if reqID == "" {
			reqID = strconv.FormatInt(start.UnixNano(), 36)
		}
		ctx := logging.WithRequestID(r.Context(), reqID)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		elapsed := time.Since(start)
		route := chi.RouteContext(ctx).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.ObserveHTTPRequest(route, strconv.Itoa(ww.Status()), elapsed)
		logging.With(ctx, s.log).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}
