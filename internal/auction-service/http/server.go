package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/internal/auction-service/dto"
)

const (
	defaultCutoffHours   = 2
	defaultTimerSeconds  = 600
	defaultBidsPageLimit = 50
	maxBidsPageLimit     = 200
)

// Repo define as operações de leilão e lote usadas pela API de cadastro
type Repo interface {
	CreateAuction(ctx context.Context, a *auction.Auction) error
	GetAuction(ctx context.Context, id string) (auction.Auction, error)
	CreateLot(ctx context.Context, l *auction.Lot) error
	GetLot(ctx context.Context, id string) (auction.Lot, error)
	ListLotsByAuction(ctx context.Context, auctionID string) ([]auction.Lot, error)
	ListActiveLotsByAuction(ctx context.Context, auctionID string) ([]auction.Lot, error)
	CancelLot(ctx context.Context, lotID string) (bool, error)
	ListBidsForLot(ctx context.Context, lotID string, status auction.BidStatus, limit, offset int) ([]auction.Bid, error)
}

// Snapshots é o cache de lotes; pode ser nil
type Snapshots interface {
	Lot(ctx context.Context, lotID string) (auction.Lot, bool, error)
	SetLot(ctx context.Context, l auction.Lot) error
}

// Server expõe o cadastro de leilões e lotes
type Server struct {
	// IncrementPercent do preço inicial vira o incremento fixo do lote
	IncrementPercent int64

	log   *zap.Logger
	repo  Repo
	cache Snapshots
	now   func() time.Time
}

func NewServer(log *zap.Logger, repo Repo, cache Snapshots) *Server {
	return &Server{IncrementPercent: auction.DefaultIncrementPercent, log: log, repo: repo, cache: cache, now: time.Now}
}

// Router retorna as rotas da API de leilões
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/auctions", s.createAuction)
	r.Get("/auctions/{auctionID}", s.getAuction)
	r.Post("/auctions/{auctionID}/lots", s.createLot)
	r.Get("/auctions/{auctionID}/lots", s.listLots)
	r.Get("/auctions/{auctionID}/active-lot", s.activeLot)
	r.Get("/lots/{lotID}", s.getLot)
	r.Get("/lots/{lotID}/bids", s.listBids) // ?offset=&limit=
	r.Post("/lots/{lotID}/cancel", s.cancelLot)
	return r
}

func (s *Server) createAuction(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	cutoff := defaultCutoffHours
	if req.CutoffHours != nil {
		cutoff = *req.CutoffHours
	}
	if strings.TrimSpace(req.Title) == "" || req.StartDate.IsZero() || cutoff < 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}

	a := auction.Auction{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		Status:      auction.AuctionDraft,
		IsEnabled:   true,
		CutoffHours: cutoff,
	}
	if err := s.repo.CreateAuction(r.Context(), &a); err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("auction created", zap.String("auction_id", a.ID), zap.Time("start_date", a.StartDate))
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) getAuction(w http.ResponseWriter, r *http.Request) {
	a, err := s.repo.GetAuction(r.Context(), chi.URLParam(r, "auctionID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) createLot(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	percent := s.IncrementPercent
	if req.IncrementPercent != nil {
		percent = *req.IncrementPercent
	}
	duration := req.TimerDurationSeconds
	if duration == 0 {
		duration = defaultTimerSeconds
	}
	if req.ProductID == "" || req.SellerID == "" || req.StartingPrice <= 0 || percent <= 0 || duration < 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}

	ctx := r.Context()
	a, err := s.repo.GetAuction(ctx, chi.URLParam(r, "auctionID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := a.CanRegisterLots(s.now()); err != nil {
		s.fail(w, err)
		return
	}

	l := auction.Lot{
		AuctionID:            a.ID,
		ProductID:            req.ProductID,
		SellerID:             req.SellerID,
		StartingPrice:        req.StartingPrice,
		BidIncrement:         auction.IncrementFor(req.StartingPrice, percent),
		TimerDurationSeconds: duration,
	}
	if err := s.repo.CreateLot(ctx, &l); err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("lot registered",
		zap.String("auction_id", a.ID), zap.String("lot_id", l.ID),
		zap.Int("position", l.Position), zap.Int64("bid_increment", l.BidIncrement))
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) listLots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auctionID := chi.URLParam(r, "auctionID")
	if _, err := s.repo.GetAuction(ctx, auctionID); err != nil {
		s.fail(w, err)
		return
	}
	lots, err := s.repo.ListLotsByAuction(ctx, auctionID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if lots == nil {
		lots = []auction.Lot{}
	}
	writeJSON(w, http.StatusOK, lots)
}

func (s *Server) activeLot(w http.ResponseWriter, r *http.Request) {
	lots, err := s.repo.ListActiveLotsByAuction(r.Context(), chi.URLParam(r, "auctionID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(lots) == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "no active lot"})
		return
	}
	writeJSON(w, http.StatusOK, lots[0])
}

// getLot tenta o snapshot do cache e cai para o banco
func (s *Server) getLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lotID := chi.URLParam(r, "lotID")
	if s.cache != nil {
		l, ok, err := s.cache.Lot(ctx, lotID)
		if err != nil {
			s.log.Warn("lot cache read failed", zap.String("lot_id", lotID), zap.Error(err))
		}
		if ok && err == nil {
			writeJSON(w, http.StatusOK, l)
			return
		}
	}
	l, err := s.repo.GetLot(ctx, lotID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.refresh(ctx, l)
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) listBids(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid offset"})
		return
	}
	limit, err := queryInt(r, "limit", defaultBidsPageLimit)
	if err != nil || limit <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid limit"})
		return
	}
	if limit > maxBidsPageLimit {
		limit = maxBidsPageLimit
	}

	ctx := r.Context()
	lotID := chi.URLParam(r, "lotID")
	if _, err := s.repo.GetLot(ctx, lotID); err != nil {
		s.fail(w, err)
		return
	}
	bids, err := s.repo.ListBidsForLot(ctx, lotID, auction.BidAccepted, limit, offset)
	if err != nil {
		s.fail(w, err)
		return
	}
	if bids == nil {
		bids = []auction.Bid{}
	}
	writeJSON(w, http.StatusOK, dto.BidsPage{Bids: bids, Offset: offset, Limit: limit})
}

func (s *Server) cancelLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l, err := s.repo.GetLot(ctx, chi.URLParam(r, "lotID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := l.CanCancel(); err != nil {
		s.fail(w, err)
		return
	}
	ok, err := s.repo.CancelLot(ctx, l.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		// ativado ou cancelado entre a leitura e o update
		s.fail(w, auction.ErrLotNotCancellable)
		return
	}

	l, err = s.repo.GetLot(ctx, l.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.refresh(ctx, l)
	s.log.Info("lot cancelled", zap.String("lot_id", l.ID), zap.String("auction_id", l.AuctionID))
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) refresh(ctx context.Context, l auction.Lot) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetLot(ctx, l); err != nil {
		s.log.Warn("lot cache write failed", zap.String("lot_id", l.ID), zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auction.ErrAuctionNotFound), errors.Is(err, auction.ErrLotNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auction.ErrAuctionClosed),
		errors.Is(err, auction.ErrRegistrationClosed),
		errors.Is(err, auction.ErrLotNotCancellable):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		s.log.Error("auction operation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
