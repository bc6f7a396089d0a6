package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/auction-bidding-core/internal/submitter"
)

type Submitter interface {
	Submit(ctx context.Context, lotID, customerID string, amount int64) submitter.Result
}

type BidRequest struct {
	CustomerID string `json:"customer_id"`
	Amount     int64  `json:"amount"`
}

// Server é a porta de entrada de lances
type Server struct {
	Submitter Submitter
}

func NewServer(s Submitter) *Server { return &Server{Submitter: s} }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/lots/{lotID}/bids", s.placeBid)
	return r
}

// placeBid responde 202 quando o lance entra na fila e 400 quando é recusado
func (s *Server) placeBid(w http.ResponseWriter, r *http.Request) {
	var req BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, submitter.Result{Message: "bad json"})
		return
	}

	res := s.Submitter.Submit(r.Context(), chi.URLParam(r, "lotID"), req.CustomerID, req.Amount)
	if !res.Accepted {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
