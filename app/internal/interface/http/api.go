package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	domcart "example.com/cartstore/app/internal/domain/cart"
	"example.com/cartstore/app/internal/infra/security"
	cartuc "example.com/cartstore/app/internal/usecase/cart"
)

type TokenService interface {
	ParseToken(token string) (*security.Claims, error)
}

type API struct {
	cartSvc        *cartuc.Service
	validator      *validator.Validate
	tokenSvc       TokenService
	log            logrus.FieldLogger
	allowedOrigins []string
}

type Dependencies struct {
	CartService *cartuc.Service
	// TokenService enables bearer authentication on /api/v1 when set.
	TokenService   TokenService
	Logger         logrus.FieldLogger
	AllowedOrigins []string
}

func NewAPI(deps Dependencies) *API {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &API{
		cartSvc:        deps.CartService,
		tokenSvc:       deps.TokenService,
		validator:      validator.New(),
		log:            log,
		allowedOrigins: deps.AllowedOrigins,
	}
}

// Handler is the router wrapped with CORS and tracing.
func (a *API) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: a.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return otelhttp.NewHandler(c.Handler(a.Router()), "cartstore")
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{Logger: a.log, NoColor: true}))
	r.Use(chimw.Recoverer)
	r.Use(chimw.AllowContentType("application/json", "text/plain"))

	r.Get("/health", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(pr chi.Router) {
			if a.tokenSvc != nil {
				pr.Use(a.authMiddleware)
			}
			pr.Get("/cart", a.handleGetCart)
			pr.Delete("/cart", a.handleClearCart)
			pr.Get("/cart/price", a.handleGetPrice)
			pr.Post("/cart/items", a.handleAddCartItem)
			pr.Patch("/cart/items/{id}", a.handleUpdateQuantity)
			pr.Delete("/cart/items/{id}", a.handleRemoveCartItem)
		})
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.cartSvc.Ping(r.Context()); err != nil {
		a.log.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) decodeAndValidate(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return a.validator.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domcart.ErrInvalidItem),
		errors.Is(err, domcart.ErrInvalidIdentifier):
		respondError(w, http.StatusBadRequest, err)
	default:
		respondError(w, http.StatusInternalServerError, err)
	}
}
