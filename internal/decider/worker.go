package decider

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

// Reader é a parte do *kafka.Reader usada pelo worker
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Leadership entrega um contexto por mandato de liderança
type Leadership interface {
	AwaitTerm(ctx context.Context) (context.Context, error)
}

type BidProcessor interface {
	ProcessBid(ctx context.Context, msg events.BidPlaced) error
}

// Worker consome auction.bids apenas enquanto esta instância é líder.
// Cada partição vai para uma lane fixa, então os lances de um lote são
// processados em ordem; partições diferentes correm em paralelo.
type Worker struct {
	Processor BidProcessor
	Leader    Leadership
	NewReader func() Reader
	Lanes     int
	Log       *zap.Logger

	OnConsumed func()
	OnError    func(stage string)
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		term, err := w.Leader.AwaitTerm(ctx)
		if err != nil {
			return err
		}
		w.Log.Info("leader term started, consuming bids")
		w.consume(term)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.Log.Info("leader term ended, bid consumption paused")
	}
}

func (w *Worker) consume(term context.Context) {
	reader := w.NewReader()
	defer func() {
		if err := reader.Close(); err != nil {
			w.Log.Warn("kafka reader close", zap.Error(err))
		}
	}()

	n := w.Lanes
	if n < 1 {
		n = 1
	}
	lanes := make([]chan kafka.Message, n)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			w.lane(term, reader, in)
		}(lanes[i])
	}

	defer func() {
		for _, ch := range lanes {
			close(ch)
		}
		wg.Wait()
	}()

	for {
		msg, err := reader.FetchMessage(term)
		if err != nil {
			if term.Err() != nil {
				return
			}
			w.Log.Warn("kafka fetch", zap.Error(err))
			w.countError("fetch")
			// Backoff simples para evitar flood em caso de erro
			select {
			case <-term.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if w.OnConsumed != nil {
			w.OnConsumed()
		}

		select {
		case lanes[msg.Partition%n] <- msg:
		case <-term.Done():
			return
		}
	}
}

// lane processa e confirma em ordem. Depois do fim do mandato as mensagens
// restantes ficam sem commit e são reentregues ao próximo líder.
func (w *Worker) lane(term context.Context, reader Reader, in <-chan kafka.Message) {
	for msg := range in {
		if term.Err() != nil {
			continue
		}
		if err := w.handle(term, msg); err != nil {
			continue
		}
		if err := reader.CommitMessages(term, msg); err != nil && term.Err() == nil {
			w.Log.Warn("kafka commit", zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
			w.countError("commit")
		}
	}
}

// handle retorna erro apenas quando a mensagem não deve ser confirmada
func (w *Worker) handle(ctx context.Context, msg kafka.Message) error {
	var bid events.BidPlaced
	if err := json.Unmarshal(msg.Value, &bid); err != nil {
		w.Log.Error("unmarshal bid", zap.Int64("offset", msg.Offset), zap.Error(err))
		w.countError("decode")
		return nil
	}
	if bid.CorrelationID == "" || bid.LotID == "" {
		w.Log.Error("bid without lot_id or correlation_id", zap.Int64("offset", msg.Offset))
		w.countError("decode")
		return nil
	}

	err := w.Processor.ProcessBid(ctx, bid)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.Log.Warn("bid left uncommitted", zap.String("correlation_id", bid.CorrelationID), zap.Error(err))
	}
	return err
}

func (w *Worker) countError(stage string) {
	if w.OnError != nil {
		w.OnError(stage)
	}
}
