package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/wallet-service/dto"
	"github.com/radieske/auction-bidding-core/internal/wallet-service/repo"
)

// Repo define a interface de operações de carteira usadas pelo handler HTTP
type Repo interface {
	GetOrCreateWallet(ctx context.Context, customerID string) (repo.Wallet, error)
	Deposit(ctx context.Context, customerID string, amount int64, ref string) (repo.Wallet, error)
	Block(ctx context.Context, customerID string, amount int64, ref string) (repo.Wallet, error)
	Unblock(ctx context.Context, customerID string, amount int64, ref string) (repo.Wallet, error)
	Debit(ctx context.Context, customerID string, amount int64, ref string) (repo.Wallet, error)
}

// Server expõe endpoints HTTP para operações de carteira (wallet)
type Server struct {
	log  *zap.Logger
	repo Repo
}

func NewServer(log *zap.Logger, repo Repo) *Server { return &Server{log: log, repo: repo} }

// Router retorna as rotas da API de wallet
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/wallet", s.getWallet) // ?customer_id=...
	r.Post("/wallet/deposit", s.deposit)
	r.Post("/wallet/block", s.reservation(s.repo.Block))
	r.Post("/wallet/unblock", s.reservation(s.repo.Unblock))
	r.Post("/wallet/debit", s.reservation(s.repo.Debit))
	return r
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "customer_id required"})
		return
	}
	wallet, err := s.repo.GetOrCreateWallet(r.Context(), customerID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(wallet))
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.CustomerID == "" || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}
	wallet, err := s.repo.Deposit(r.Context(), req.CustomerID, req.Amount, req.Reference)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(wallet))
}

type reservationOp func(ctx context.Context, customerID string, amount int64, ref string) (repo.Wallet, error)

// reservation trata block, unblock e debit, que compartilham o payload
func (s *Server) reservation(op reservationOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
			return
		}
		if req.CustomerID == "" || req.Amount <= 0 || req.Reference == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
			return
		}
		wallet, err := op(r.Context(), req.CustomerID, req.Amount, req.Reference)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(wallet))
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrInsufficientAvailable),
		errors.Is(err, repo.ErrInsufficientBlocked),
		errors.Is(err, repo.ErrReservationReleased):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	default:
		s.log.Error("wallet operation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func toResponse(w repo.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		CustomerID:     w.CustomerID,
		WalletID:       w.ID,
		Balance:        w.Balance,
		BlockedBalance: w.BlockedBalance,
		Available:      w.Available(),
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
