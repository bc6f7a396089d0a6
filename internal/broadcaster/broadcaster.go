package broadcaster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/gateway"
	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Hub é o lado de entrega do gateway
type Hub interface {
	Broadcast(env gateway.Envelope, rooms ...string) int
	SendToCustomer(customerID string, env gateway.Envelope) int
}

// Broadcaster traduz auction.updates em mensagens para as salas do gateway.
// Não precisa de liderança: cada instância entrega aos seus próprios clientes.
type Broadcaster struct {
	Hub Hub
	Log *zap.Logger

	OnDispatched func(eventType string)
	OnError      func(stage string)
}

func New(hub Hub, log *zap.Logger) *Broadcaster { return &Broadcaster{Hub: hub, Log: log} }

// Handle é o handler do consumidor; erros ficam restritos à mensagem
func (b *Broadcaster) Handle(_ context.Context, m kafka.Message) error {
	var u events.AuctionUpdate
	if err := json.Unmarshal(m.Value, &u); err != nil {
		b.error("decode")
		return fmt.Errorf("decode update: %w", err)
	}
	err := b.Dispatch(u)
	if errors.Is(err, ErrUnknownEvent) {
		b.Log.Warn("skipping unknown event type", zap.String("event_type", string(u.EventType)), zap.String("lot_id", u.LotID))
		b.error("unknown_type")
		return nil
	}
	if err != nil {
		b.error("dispatch")
	}
	return err
}

// Dispatch entrega uma atualização conforme o tipo de evento
func (b *Broadcaster) Dispatch(u events.AuctionUpdate) error {
	switch u.EventType {
	case events.BidAccepted:
		return b.toRooms(u, gateway.MsgBidUpdate, gateway.LotRoom(u.LotID))

	case events.BidRejected:
		var d events.BidRejectedData
		if err := u.Decode(&d); err != nil {
			return fmt.Errorf("decode bid_rejected: %w", err)
		}
		if d.CustomerID == "" {
			return errors.New("bid_rejected without customer_id")
		}
		env, err := gateway.NewEnvelope(gateway.MsgError, gateway.ErrorData{Message: d.Reason, LotID: u.LotID}, u.TsUnixMs)
		if err != nil {
			return err
		}
		n := b.Hub.SendToCustomer(d.CustomerID, env)
		b.dispatched(u.EventType, n)
		return nil

	case events.LotStarted:
		return b.toRooms(u, gateway.MsgLotStarted, gateway.LotRoom(u.LotID), gateway.AuctionRoom(u.AuctionID))

	case events.LotEnded:
		return b.toRooms(u, gateway.MsgLotEnded, gateway.LotRoom(u.LotID), gateway.AuctionRoom(u.AuctionID))

	case events.TimerTick, events.TimerReset:
		return b.toRooms(u, gateway.MsgTimerUpdate, gateway.LotRoom(u.LotID))

	default:
		return ErrUnknownEvent
	}
}

// toRooms repassa o payload com lot_id e auction_id acrescentados
func (b *Broadcaster) toRooms(u events.AuctionUpdate, msgType string, rooms ...string) error {
	data := map[string]json.RawMessage{}
	if len(u.Data) > 0 {
		if err := json.Unmarshal(u.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", u.EventType, err)
		}
	}
	if data == nil {
		// payload "null"
		data = map[string]json.RawMessage{}
	}
	data["lot_id"] = quote(u.LotID)
	if u.AuctionID != "" {
		data["auction_id"] = quote(u.AuctionID)
	}
	if msgType == gateway.MsgTimerUpdate {
		data["event"] = quote(string(u.EventType))
	}

	env, err := gateway.NewEnvelope(msgType, data, u.TsUnixMs)
	if err != nil {
		return err
	}
	b.dispatched(u.EventType, b.Hub.Broadcast(env, rooms...))
	return nil
}

func quote(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}

func (b *Broadcaster) dispatched(t events.UpdateType, n int) {
	b.Log.Debug("update delivered", zap.String("event_type", string(t)), zap.Int("connections", n))
	if b.OnDispatched != nil {
		b.OnDispatched(string(t))
	}
}

func (b *Broadcaster) error(stage string) {
	if b.OnError != nil {
		b.OnError(stage)
	}
}
