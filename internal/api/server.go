// Package api serves the studio's HTTP and websocket surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/AIMultiverse/internal/auth"
	"github.com/digkill/AIMultiverse/internal/httpx"
	"github.com/digkill/AIMultiverse/internal/live"
	"github.com/digkill/AIMultiverse/internal/service"
)

type Options struct {
	Addr          string
	AllowedOrigin string
	// WriteTimeout defaults to 15 minutes to cover video generation.
	WriteTimeout time.Duration
	Log          *slog.Logger
	Tokens       *auth.Manager
	Auth         *service.AuthService
	Ledger       *service.LedgerService
	Support      *service.SupportService
	Files        *service.FileService
	Generation   *service.GenerationService
	// LiveDial is nil when the vendor is not configured.
	LiveDial live.Dialer
	Sessions *live.Sessions
	// Admin is mounted under /api/admin behind authentication.
	Admin   http.Handler
	Storage string
	Now     func() time.Time
}

type Server struct {
	addr         string
	origin       string
	writeTimeout time.Duration
	log          *slog.Logger
	tokens       *auth.Manager
	auth         *service.AuthService
	ledger       *service.LedgerService
	support      *service.SupportService
	files        *service.FileService
	generation   *service.GenerationService
	liveDial     live.Dialer
	sessions     *live.Sessions
	storage      string
	now          func() time.Time
	router       *chi.Mux
}

func NewServer(opts Options) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:         opts.Addr,
		origin:       strings.TrimSpace(opts.AllowedOrigin),
		writeTimeout: opts.WriteTimeout,
		log:          opts.Log,
		tokens:       opts.Tokens,
		auth:         opts.Auth,
		ledger:       opts.Ledger,
		support:      opts.Support,
		files:        opts.Files,
		generation:   opts.Generation,
		liveDial:     opts.LiveDial,
		sessions:     opts.Sessions,
		storage:      opts.Storage,
		now:          opts.Now,
		router:       r,
	}
	if s.sessions == nil {
		s.sessions = live.NewSessions()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = 15 * time.Minute
	}
	r.Use(s.cors)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/plans", s.handlePlans)
		r.Get("/payments/methods", s.handlePaymentMethods)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/guest", s.handleGuest)
			r.Post("/social", s.handleSocial)
		})

		r.Group(func(protected chi.Router) {
			protected.Use(s.requireAuth)
			protected.Route("/me", func(r chi.Router) {
				r.Get("/", s.handleMe)
				r.Get("/history", s.handleMyHistory)
				r.Get("/payments", s.handleMyPayments)
				r.Get("/complaints", s.handleMyComplaints)
				r.Get("/permissions/{kind}", s.handlePermission)
			})
			protected.Post("/payments", s.handleCreatePayment)
			protected.Post("/complaints", s.handleCreateComplaint)
			protected.Route("/files", func(r chi.Router) {
				r.Get("/", s.handleListFiles)
				r.Delete("/{id}", s.handleDeleteFile)
			})
			protected.Route("/ai", func(r chi.Router) {
				r.Post("/chat", s.handleChat)
				r.Post("/translate", s.handleTranslate)
				r.Post("/speech", s.handleSpeech)
				r.Post("/transcribe", s.handleTranscribe)
				r.Post("/image", s.handleImage)
				r.Post("/video", s.handleVideo)
				r.Post("/document", s.handleDocument)
				r.Post("/voice-clone", s.handleVoiceClone)
			})
			protected.Get("/live", s.handleLive)
			if opts.Admin != nil {
				protected.Mount("/admin", opts.Admin)
			}
		})
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.writeTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("api shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFromRequest(r)
		if token == "" {
			httpx.WriteMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.tokens.Parse(token)
		if err != nil {
			httpx.WriteMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

const (
	corsAllowedMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowedHeaders = "Authorization, Content-Type, X-Request-ID"
)

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		allowed := origin != "" && (s.origin == "*" || s.origin == origin)

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if !allowed {
				httpx.WriteMessage(w, http.StatusForbidden, "cors preflight not allowed")
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accountID(r *http.Request) string {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		return ""
	}
	return claims.AccountID()
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, s.log, err)
}
