package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/digkill/AIMultiverse/internal/httpx"
	"github.com/digkill/AIMultiverse/internal/live"
	"github.com/digkill/AIMultiverse/internal/models"
	"github.com/digkill/AIMultiverse/internal/service"
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			return origin == "" || s.origin == "*" || origin == s.origin
		},
	}
}

// handleLive bills one LIVE_INTERACTION and relays audio between the caller
// and a vendor session until either side hangs up.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.liveDial == nil {
		s.fail(w, r, service.ErrAIUnavailable)
		return
	}
	ctx := r.Context()
	accountID := s.accountID(r)

	acc, err := s.ledger.ResolveAccount(ctx, accountID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if acc.IsBanned {
		s.fail(w, r, service.ErrAccountBanned)
		return
	}
	allowed, err := s.ledger.CheckPermission(ctx, acc, models.ActionLiveInteraction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !allowed {
		s.fail(w, r, service.ErrPermissionDenied)
		return
	}

	if !s.sessions.Acquire(accountID, s.now().UTC()) {
		httpx.WriteMessage(w, http.StatusConflict, "a live session is already active")
		return
	}
	defer s.sessions.Release(accountID)

	upstream, err := s.liveDial(ctx)
	if err != nil {
		s.log.Error("live vendor connect failed", "account_id", accountID, "err", err)
		s.fail(w, r, fmt.Errorf("%w: live connect: %v", service.ErrVendor, err))
		return
	}
	defer upstream.Close()

	feature, err := s.ledger.Catalog().Feature(models.ActionLiveInteraction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	record, err := s.ledger.Charge(ctx, accountID, models.ActionLiveInteraction, feature.Cost)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("live upgrade failed", "account_id", accountID, "err", err)
		return
	}
	client := live.NewServerConn(conn)
	defer client.Close()

	started := s.now()
	s.log.Info("live session started", "account_id", accountID, "charged", record.CreditsDeducted)
	if err := relay(ctx, client, upstream); err != nil {
		s.log.Warn("live session ended with error", "account_id", accountID, "err", err)
	}
	s.log.Info("live session ended", "account_id", accountID, "duration", s.now().Sub(started))
}

// relay pipes caller frames upstream and vendor events back until one side stops.
func relay(ctx context.Context, client *live.ServerConn, upstream live.Channel) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	go func() {
		for {
			blob, err := client.ReadInput()
			if err != nil {
				errc <- err
				return
			}
			if err := upstream.SendAudio(ctx, blob); err != nil {
				errc <- err
				return
			}
		}
	}()
	go func() {
		for {
			ev, err := upstream.Receive(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					_ = client.WriteEvent(live.Event{Type: live.EventError, Err: "live session failed"})
				}
				errc <- err
				return
			}
			if err := client.WriteEvent(ev); err != nil {
				errc <- err
				return
			}
		}
	}()

	err := <-errc
	cancel()
	_ = upstream.Close()
	_ = client.Close()
	<-errc
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
