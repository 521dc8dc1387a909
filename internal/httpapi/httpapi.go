// Package httpapi exposes the cart session service over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cafepos/backend/internal/auth"
	"cafepos/backend/internal/logger"
	"cafepos/backend/internal/metrics"
	"cafepos/backend/internal/service"
	"cafepos/backend/internal/upstream"
)

const maxBodyBytes = 1 << 20

type Options struct {
	AllowedOrigins []string
	Metrics        *metrics.Metrics

	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

type API struct {
	service        *service.Service
	tokens         *auth.TokenManager
	metrics        *metrics.Metrics
	metricsHandler http.Handler
	allowedOrigins []string
	log            zerolog.Logger
}

func New(svc *service.Service, tokens *auth.TokenManager, opts Options) *API {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &API{
		service:        svc,
		tokens:         tokens,
		metrics:        opts.Metrics,
		metricsHandler: opts.MetricsHandler,
		allowedOrigins: origins,
		log:            logger.Component("http"),
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimiddleware.RequestID,
		chimiddleware.Recoverer,
		a.securityHeaders,
		cors.Handler(cors.Options{
			AllowedOrigins: a.allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}),
		a.requestLogger,
		limitBody,
	)

	r.Get("/healthz", a.handleHealth)
	if a.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", a.metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(a.requireAuth)

		r.Post("/carts", a.handleOpenCart)
		r.Route("/carts/{cartID}", func(r chi.Router) {
			r.Get("/", a.handleGetCart)
			r.Delete("/", a.handleCloseCart)

			r.Post("/items", a.handleAddItem)
			r.Delete("/items", a.handleClearCart)
			r.Patch("/items/{index}", a.handleUpdateQuantity)
			r.Delete("/items/{index}", a.handleRemoveItem)
			r.Put("/items/{index}/addons", a.handleSetAddons)

			r.Get("/discounts", a.handleDiscountOptions)
			r.Post("/discounts", a.handleApplyDiscount)
			r.Delete("/discounts", a.handleRemoveAllDiscounts)
			r.Post("/discounts/preview", a.handlePreviewDiscount)
			r.Delete("/discounts/{index}", a.handleRemoveDiscount)

			r.Post("/checkout", a.handleCheckout)
		})

		r.Post("/orders/{orderID}/refund-quote", a.handleRefundQuote)
		r.Post("/orders/{orderID}/refunds", a.handleRefund)

		r.Get("/audit-logs", a.handleAuditLogs)
		r.Post("/catalog/refresh", a.handleCatalogRefresh)
	})

	return r
}

// requireAuth resolves the bearer token to an actor. The raw token rides
// along in the context so collaborator calls act on the caller's behalf.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.tokens.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		ctx := service.WithActor(r.Context(), actor)
		ctx = upstream.WithBearerToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(startedAt)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		a.metrics.ObserveHTTP(r.Method, route, status, elapsed)

		event := a.log.Info()
		if status >= http.StatusInternalServerError {
			event = a.log.Error()
		}
		event.
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", elapsed).
			Msg("request")
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func pathIndex(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return idx, nil
}

func parsePositiveLimit(raw string, fallback int, ceiling int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if ceiling > 0 && limit > ceiling {
		return ceiling
	}
	return limit
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 500s get a generic message; everything else is meant for the cashier.
	body := map[string]any{"error": err.Error()}
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		log.Error().Err(err).Int("status", status).Msg("internal error")
		body["error"] = "internal server error"
	}
	var verr *validationError
	if errors.As(err, &verr) {
		body["details"] = verr.fields
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
