package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/internal/timer"
)

type Controller interface {
	ResetTimer(ctx context.Context, lotID string) error
	StartAuction(ctx context.Context, auctionID string) error
	IsLeader() bool
	Tracked() []string
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server expõe o controle do timer; só o líder executa comandos
type Server struct {
	Log   *zap.Logger
	Timer Controller
}

func NewServer(log *zap.Logger, t Controller) *Server { return &Server{Log: log, Timer: t} }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/lots/{lotID}/timer/reset", s.resetTimer)
	r.Post("/auctions/{auctionID}/start", s.startAuction)
	r.Get("/timer/status", s.status)
	return r
}

func (s *Server) resetTimer(w http.ResponseWriter, r *http.Request) {
	lotID := chi.URLParam(r, "lotID")
	if err := s.Timer.ResetTimer(r.Context(), lotID); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"lot_id": lotID, "status": "reset"})
}

func (s *Server) startAuction(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "auctionID")
	if err := s.Timer.StartAuction(r.Context(), auctionID); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auction_id": auctionID, "status": "started"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"leader":       s.Timer.IsLeader(),
		"tracked_lots": s.Timer.Tracked(),
	})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timer.ErrNotLeader):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, auction.ErrLotNotFound), errors.Is(err, auction.ErrAuctionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, auction.ErrLotNotActive), errors.Is(err, auction.ErrAuctionNotStartable):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		s.Log.Error("timer command failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
