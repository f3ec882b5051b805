// Package admin serves the operator routes mounted under /api/admin.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/AIMultiverse/internal/auth"
	"github.com/digkill/AIMultiverse/internal/httpx"
	"github.com/digkill/AIMultiverse/internal/live"
	"github.com/digkill/AIMultiverse/internal/service"
)

type Server struct {
	log      *slog.Logger
	ledger   *service.LedgerService
	support  *service.SupportService
	sessions *live.Sessions
	router   *chi.Mux
}

// NewServer expects auth.Claims in the request context. Admin rights are
// re-read from storage on every request.
func NewServer(log *slog.Logger, ledger *service.LedgerService, support *service.SupportService, sessions *live.Sessions) *Server {
	r := chi.NewRouter()

	s := &Server{
		log:      log,
		ledger:   ledger,
		support:  support,
		sessions: sessions,
		router:   r,
	}
	r.Use(s.requireAdmin)
	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.handleListUsers)
		r.Post("/{id}/ban", s.handleBan)
		r.Get("/{id}/history", s.handleUserHistory)
	})
	r.Route("/payments", func(r chi.Router) {
		r.Get("/", s.handleListPayments)
		r.Post("/{id}/approve", s.handleApprove)
		r.Post("/{id}/reject", s.handleReject)
	})
	r.Route("/complaints", func(r chi.Router) {
		r.Get("/", s.handleListComplaints)
		r.Post("/{id}/reply", s.handleReply)
	})
	r.Get("/live", s.handleLiveSessions)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFrom(r.Context())
		if !ok {
			httpx.WriteMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		acc, err := s.ledger.ResolveAccount(r.Context(), claims.AccountID())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if !acc.IsAdmin || acc.IsBanned {
			s.fail(w, r, service.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accounts)
}

type banRequest struct {
	Banned *bool `json:"banned"`
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid json")
		return
	}
	if req.Banned == nil {
		s.badRequest(w, "banned is required")
		return
	}
	if claims, _ := auth.ClaimsFrom(r.Context()); claims.AccountID() == id && *req.Banned {
		s.badRequest(w, "you cannot ban yourself")
		return
	}
	if err := s.ledger.BanAccount(r.Context(), id, *req.Banned); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			httpx.WriteMessage(w, http.StatusNotFound, "account not found")
			return
		}
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "banned": *req.Banned})
}

func (s *Server) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.ledger.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, history)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.AllPayments(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payments)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	payment, err := s.ledger.ApprovePayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payment)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	payment, err := s.ledger.RejectPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payment)
}

func (s *Server) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	complaints, err := s.support.ListComplaints(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, complaints)
}

type replyRequest struct {
	Reply string `json:"reply"`
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid json")
		return
	}
	complaint, err := s.support.ReplyComplaint(r.Context(), chi.URLParam(r, "id"), req.Reply)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, complaint)
}

func (s *Server) handleLiveSessions(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteMessage(w, http.StatusBadRequest, msg)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, s.log, err)
}
