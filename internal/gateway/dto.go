package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Mensagens servidor -> cliente
const (
	MsgBidUpdate   = "bid-update"
	MsgError       = "error"
	MsgLotStarted  = "lot-started"
	MsgLotEnded    = "lot-ended"
	MsgTimerUpdate = "timer-update"
)

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: join | leave | ping
type ClientMsg struct {
	Type      string `json:"type"`
	AuctionID string `json:"auction_id,omitempty"`
	LotID     string `json:"lot_id,omitempty"`
}

// Envelope é o formato de toda mensagem enviada ao cliente
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type ErrorData struct {
	Message string `json:"message"`
	LotID   string `json:"lot_id,omitempty"`
}

// NewEnvelope serializa data no envelope
func NewEnvelope(msgType string, data any, tsUnixMs int64) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Data: raw, Timestamp: tsUnixMs}, nil
}

func LotRoom(lotID string) string         { return "lot:" + lotID }
func AuctionRoom(auctionID string) string { return "auction:" + auctionID }

// AllowOrigins aceita "*" ou uma lista separada por vírgula
func AllowOrigins(list string) func(r *http.Request) bool {
	allowed := map[string]struct{}{}
	for _, o := range strings.Split(list, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		if _, ok := allowed["*"]; ok {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			// clientes fora do browser não mandam Origin
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
