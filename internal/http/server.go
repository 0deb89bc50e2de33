package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"digitalstore/internal/config"
	"digitalstore/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	svc *services.Service
	cfg config.Config
	log zerolog.Logger
}

func NewServer(svc *services.Service, cfg config.Config, logger zerolog.Logger) *Server {
	return &Server{svc: svc, cfg: cfg, log: logger}
}

func (s *Server) loggingRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				s.log.Error().Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).Str("path", r.URL.Path).
					Interface("panic", rvr).Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.log.Info().Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).Str("path", r.URL.Path).
				Int("status", ww.Status()).Dur("duration", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,Stripe-Signature")
		w.Header().Set("Access-Control-Max-Age", "86400")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingRecoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/products", s.handleListProducts)
		r.Get("/products/{id}", s.handleGetProduct)
		r.Get("/discounts", s.handleGetActiveDiscount)
		r.Post("/webhooks/stripe", s.handleStripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.jwtMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.Get("/products/{id}/access", s.handleProductAccess)
			r.With(s.requireAccess(resourceProduct)).Get("/products/{id}/modules", s.handleListModules)
			r.With(s.requireAccess(resourceModule)).Get("/modules/{id}/materials", s.handleListMaterials)
			r.With(s.requireAccess(resourceMaterial)).Get("/materials/{id}", s.handleGetMaterial)

			r.Post("/checkout", s.handleCreateCheckout)
			r.Get("/orders", s.handleListMyOrders)
			r.Get("/orders/{id}", s.handleGetOrder)
			r.Get("/assets", s.handleListMyAssets)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.jwtMiddleware)
			r.Use(s.adminMiddleware)

			r.Get("/discounts", s.handleGetActiveDiscount)
			r.Put("/discounts", s.handleSetDiscount)
			r.Delete("/discounts", s.handleRemoveDiscount)
			r.Get("/stats", s.handleStats)
			r.Get("/orders", s.handleRecentOrders)
			r.Patch("/users/{id}/role", s.handleUpdateUserRole)
		})
	})

	return r
}

// ---- auth ----

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	token, err := s.generateJWT(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, err)
			return
		}
		s.respondServiceError(w, err)
		return
	}
	token, err := s.generateJWT(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	user, err := s.svc.GetUser(r.Context(), sess.UserID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// ---- catalog ----

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	listings, err := s.svc.ListProducts(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listings)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.svc.ListModules(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, modules)
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := s.svc.ListMaterials(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, materials)
}

func (s *Server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	material, err := s.svc.GetMaterial(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, material)
}

// ---- access ----

func (s *Server) handleProductAccess(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	result := s.svc.VerifyProductAccess(r.Context(), sess.UserID, chi.URLParam(r, "id"))
	respondJSON(w, http.StatusOK, result)
}

// ---- checkout & orders ----

type createCheckoutRequest struct {
	ProductIDs []string `json:"product_ids"`
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	// The buyer is always the session user.
	sess := sessionFromContext(r.Context())
	result, err := s.svc.CreateCheckout(r.Context(), sess.UserID, req.ProductIDs)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	orders, err := s.svc.ListUserOrders(r.Context(), sess.UserID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.svc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	sess := sessionFromContext(r.Context())
	if order.UserID != sess.UserID && !isAdmin(r.Context()) {
		respondError(w, http.StatusForbidden, errors.New("access denied"))
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleListMyAssets(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	assets, err := s.svc.ListUserAssets(r.Context(), sess.UserID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, assets)
}

// ---- discounts & admin ----

func (s *Server) handleGetActiveDiscount(w http.ResponseWriter, r *http.Request) {
	discount, err := s.svc.ActiveDiscount(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondJSON(w, http.StatusOK, map[string]any{"active": false})
			return
		}
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"active": true, "discount": discount})
}

type setDiscountRequest struct {
	Type       string `json:"type"`
	Percentage int    `json:"percentage"`
	Category   string `json:"category"`
}

func (s *Server) handleSetDiscount(w http.ResponseWriter, r *http.Request) {
	var req setDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	discount, err := s.svc.SetDiscount(r.Context(), req.Type, req.Percentage, req.Category)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, discount)
}

func (s *Server) handleRemoveDiscount(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveDiscount(r.Context()); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.GetStats(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecentOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.svc.ListRecentOrders(r.Context(), 20)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

type updateUserRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req updateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.svc.UpdateUserRole(r.Context(), chi.URLParam(r, "id"), req.Role); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var owned *services.AlreadyOwnedError
	switch {
	case errors.As(err, &owned):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, services.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrNoValidProducts):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrInvalidMetadata):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrEmailAlreadyExists):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, services.ErrDuplicateRequest):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, services.ErrStripeNotConfigured):
		respondError(w, http.StatusServiceUnavailable, err)
	default:
		s.log.Error().Err(err).Msg("internal server error")
		respondError(w, http.StatusInternalServerError, err)
	}
}
