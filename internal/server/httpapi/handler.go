// Package httpapi exposes the link protocol and the issuer API over HTTP
// using a chi router.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/shlink/internal/logging"
	"github.com/dmitrijs2005/shlink/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
)

// ManifestService answers recipient requests.
type ManifestService interface {
	Manifest(ctx context.Context, req services.ManifestRequest) (*services.ManifestResult, error)
	Direct(ctx context.Context, manifestID string, access services.AccessInfo) (*services.ManifestResult, error)
	File(ctx context.Context, token string, access services.AccessInfo) (*services.FileEntry, error)
}

// LinkService implements the issuer operations.
type LinkService interface {
	Create(ctx context.Context, in services.CreateLinkInput) (*services.CreatedLink, error)
	AddContent(ctx context.Context, linkID string, in services.ContentInput) (*services.ContentSummary, error)
	List(ctx context.Context, active *bool, page, size int) (*services.Page[services.LinkSummary], error)
	Get(ctx context.Context, id string) (*services.LinkDetail, error)
	Revoke(ctx context.Context, id string) error
	AccessLog(ctx context.Context, id string, page, size int) (*services.Page[services.AccessLogEntry], error)
	QRCode(ctx context.Context, id string) ([]byte, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler holds the dependencies of every route.
type Handler struct {
	manifests      ManifestService
	links          LinkService
	db             Pinger
	logger         logging.Logger
	validate       *validator.Validate
	allowedOrigins []string
}

func NewHandler(ms ManifestService, ls LinkService, db Pinger, allowedOrigins []string, logger logging.Logger) *Handler {
	return &Handler{
		manifests:      ms,
		links:          ls,
		db:             db,
		logger:         logger.With("module", "http"),
		validate:       validator.New(),
		allowedOrigins: allowedOrigins,
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.handleHealth)

	r.Route("/api/shl", func(r chi.Router) {
		r.Post("/manifest/{manifestID}", h.handleManifest)
		r.Get("/manifest/{manifestID}", h.handleDirect)
		r.Get("/file/{token}", h.handleFile)

		r.Post("/", h.handleCreateJSON)
		r.Post("/file", h.handleCreateFile)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleRevoke)
		r.Get("/{id}/access-log", h.handleAccessLog)
		r.Post("/{id}/content", h.handleAddContent)
		r.Get("/{id}/qr", h.handleQR)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Error(ctx, "health check failed", "error", err)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
