package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type queueReader struct {
	mu        sync.Mutex
	queue     chan kafka.Message
	fetchErrs int
	committed []int64
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErrs > 0 {
		r.fetchErrs--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	r.mu.Unlock()
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.queue:
		return m, nil
	}
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *queueReader) offsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumer_CommitsEvenWhenHandleFails(t *testing.T) {
	r := &queueReader{queue: make(chan kafka.Message, 3), fetchErrs: 1}
	r.queue <- kafka.Message{Offset: 1}
	r.queue <- kafka.Message{Offset: 2}
	r.queue <- kafka.Message{Offset: 3}

	var mu sync.Mutex
	var stages []string
	consumed := 0
	c := &Consumer{
		Log:    zap.NewNop(),
		Reader: r,
		Handle: func(_ context.Context, m kafka.Message) error {
			if m.Offset == 2 {
				return errors.New("bad payload")
			}
			return nil
		},
		OnConsumed: func() { mu.Lock(); consumed++; mu.Unlock() },
		OnError:    func(s string) { mu.Lock(); stages = append(stages, s); mu.Unlock() },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(r.offsets()) == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.Equal(t, []int64{1, 2, 3}, r.offsets())
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, consumed)
	require.Equal(t, []string{"fetch", "handle"}, stages)
}
