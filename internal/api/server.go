package api

import (
	"context"
	"net/http"
	"time"

	"giftmatch/internal/core"
	"giftmatch/internal/metrics"
	"giftmatch/internal/services"
	"giftmatch/internal/storage"
	"giftmatch/pkg"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxBodyBytes          = 1 << 20

	errSomethingWrong   = "Something went wrong"
	errMissingContext   = "Missing required context fields"
	errNoMatches        = "No gifts match your criteria. Please try different selections."
	errRecommendFailed  = "Failed to generate recommendations"
	errInvalidBody      = "Invalid request body"
	errMessagesRequired = "At least one user message is required"
)

// Responder generates the final reply of a chat turn
type Responder interface {
	Generate(ctx context.Context, systemPrompt string, history []pkg.ConversationMessage) (string, error)
	Stream(ctx context.Context, systemPrompt string, history []pkg.ConversationMessage, onDelta func(string) error) (string, error)
}

// Wizard answers single-shot recommendation requests
type Wizard interface {
	Wizard(ctx context.Context, giftCtx pkg.GiftContext) (*pkg.RecommendationResponse, error)
}

// Assistant answers with the document tools
type Assistant interface {
	Run(ctx context.Context, history []pkg.ConversationMessage) (*pkg.AssistantResponse, error)
}

// Deps are the collaborators of the HTTP API. Assistant may be nil when retrieval is disabled.
type Deps struct {
	Processor core.GraphProcessor
	Responder Responder
	Wizard    Wizard
	Assistant Assistant
	Sessions  storage.SessionManager
	Catalog   *services.CatalogStore
}

// Server is the HTTP API server for GiftMatch.
type Server struct {
	router chi.Router
	deps   Deps
	cfg    core.ServerConfig
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, cfg core.ServerConfig) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if deps.Sessions == nil {
		deps.Sessions = storage.NewMemorySessionManager(0, 0)
	}
	s := &Server{deps: deps, cfg: cfg}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger())

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))

		r.Get("/options", s.handleOptions)
		r.Post("/chat", s.handleChat)
		r.Delete("/sessions/{sessionID}", s.handleResetSession)
		r.Post("/recommendations", s.handleRecommendations)
		r.Post("/assistant", s.handleAssistant)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	gifts := 0
	if s.deps.Catalog != nil {
		gifts = s.deps.Catalog.Len()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "gifts": gifts})
}
