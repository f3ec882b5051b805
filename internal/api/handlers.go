package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/AIMultiverse/internal/catalog"
	"github.com/digkill/AIMultiverse/internal/httpx"
	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/service"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statusResponse struct {
	AI      bool      `json:"ai"`
	Live    bool      `json:"live"`
	Storage string    `json:"storage"`
	Time    time.Time `json:"time"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, statusResponse{
		AI:      s.generation.Available(),
		Live:    s.liveDial != nil,
		Storage: s.storage,
		Time:    s.now().UTC(),
	})
}

type plansResponse struct {
	Plans                   []catalog.Plan                        `json:"plans"`
	Features                map[models.ActionKind]catalog.Feature `json:"features"`
	VoiceModels             []catalog.VoiceModel                  `json:"voiceModels"`
	VoiceCloneCostPerSecond int64                                 `json:"voiceCloneCostPerSecond"`
	VoiceCloneMinSeconds    float64                               `json:"voiceCloneMinSeconds"`
	VoiceCloneMaxSeconds    float64                               `json:"voiceCloneMaxSeconds"`
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	cat := s.ledger.Catalog()
	httpx.WriteJSON(w, http.StatusOK, plansResponse{
		Plans:                   cat.OrderedPlans(),
		Features:                cat.Features,
		VoiceModels:             cat.VoiceModels,
		VoiceCloneCostPerSecond: cat.VoiceCloneCostPerS,
		VoiceCloneMinSeconds:    cat.VoiceCloneMinSecs,
		VoiceCloneMaxSeconds:    cat.VoiceCloneMaxSecs,
	})
}

func (s *Server) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.ledger.Catalog().Methods())
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Account   *models.Account `json:"account"`
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, status int, acc *models.Account) {
	token, expires, err := s.tokens.Issue(acc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, status, sessionResponse{Token: token, ExpiresAt: expires, Account: acc})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	acc, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.issue(w, r, http.StatusCreated, acc)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	acc, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.issue(w, r, http.StatusOK, acc)
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	acc, err := s.auth.GuestLogin(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.issue(w, r, http.StatusCreated, acc)
}

type socialRequest struct {
	Provider models.AuthProvider `json:"provider"`
	Name     string              `json:"name"`
}

func (s *Server) handleSocial(w http.ResponseWriter, r *http.Request) {
	var req socialRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	acc, err := s.auth.SocialLogin(r.Context(), req.Provider, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.issue(w, r, http.StatusCreated, acc)
}

type meResponse struct {
	Account *models.Account `json:"account"`
	Plan    catalog.Plan    `json:"plan"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acc, err := s.ledger.ResolveAccount(r.Context(), s.accountID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	plan, err := s.ledger.Catalog().Plan(acc.PlanType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{Account: acc, Plan: plan})
}

func (s *Server) handleMyHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.ledger.History(r.Context(), s.accountID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, history)
}

func (s *Server) handleMyPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.Payments(r.Context(), s.accountID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payments)
}

func (s *Server) handleMyComplaints(w http.ResponseWriter, r *http.Request) {
	complaints, err := s.support.ListAccountComplaints(r.Context(), s.accountID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, complaints)
}

type permissionResponse struct {
	Kind    models.ActionKind `json:"kind"`
	Allowed bool              `json:"allowed"`
}

func (s *Server) handlePermission(w http.ResponseWriter, r *http.Request) {
	kind := models.ActionKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		s.fail(w, r, fmt.Errorf("%w: unknown action kind %q", service.ErrInvalidInput, kind))
		return
	}
	acc, err := s.ledger.ResolveAccount(r.Context(), s.accountID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	allowed, err := s.ledger.CheckPermission(r.Context(), acc, kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, permissionResponse{Kind: kind, Allowed: allowed})
}

type paymentRequest struct {
	Plan          models.PlanType      `json:"plan"`
	Method        models.PaymentMethod `json:"method"`
	SenderName    string               `json:"senderName"`
	SenderAccount string               `json:"senderAccount"`
	SenderBank    string               `json:"senderBank"`
	TransactionID string               `json:"transactionId"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	payment, err := s.ledger.RecordPayment(r.Context(), s.accountID(r), service.PaymentInput{
		Plan:          req.Plan,
		Method:        req.Method,
		SenderName:    req.SenderName,
		SenderAccount: req.SenderAccount,
		SenderBank:    req.SenderBank,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, payment)
}

type complaintRequest struct {
	Kind    models.ComplaintKind `json:"kind"`
	Message string               `json:"message"`
}

func (s *Server) handleCreateComplaint(w http.ResponseWriter, r *http.Request) {
	var req complaintRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	complaint, err := s.support.SubmitComplaint(r.Context(), s.accountID(r), req.Kind, req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, complaint)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.files.List(r.Context(), s.accountID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, files)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.files.Delete(r.Context(), s.accountID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
