package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejobratic/ordersync/internal/syncorder/adapters/memory"
	"github.com/dejobratic/ordersync/internal/syncorder/app/commands"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/pipeline"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

type mockTransmitter struct {
	sent        []pipeline.Payload
	sendFn      func(ctx context.Context, payload pipeline.Payload) error
	availableFn func() bool
}

func (m *mockTransmitter) Send(ctx context.Context, payload pipeline.Payload) error {
	m.sent = append(m.sent, payload)
	if m.sendFn != nil {
		return m.sendFn(ctx, payload)
	}
	return nil
}

func (m *mockTransmitter) Available() bool {
	if m.availableFn != nil {
		return m.availableFn()
	}
	return true
}

type fixedLimiter int

func (f fixedLimiter) MaxAttempts(context.Context, int64) int { return int(f) }

func setup(t *testing.T, transmitter pipeline.Transmitter, maxAttempts int, orderIDs ...int64) (*memory.Store, *pipeline.Processor) {
	t.Helper()
	store := memory.NewStore()
	handler := commands.NewSyncHandler(store.Orders(), store.SyncOrders(), store.History(), nil, fixedLimiter(maxAttempts), nil)
	for _, id := range orderIDs {
		store.Orders().Add(domain.Order{ID: id, StoreID: 1, IncrementID: "100", State: "complete"})
		_, err := handler.Queue(context.Background(), commands.QueueCommand{OrderID: id, Via: "test"})
		require.NoError(t, err)
	}
	return store, pipeline.NewProcessor(handler, store.Orders(), nil, transmitter, nil)
}

func statusOf(t *testing.T, store *memory.Store, orderID int64) domain.SyncOrder {
	t.Helper()
	so, err := store.SyncOrders().GetByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	return *so
}

func TestProcessPageSyncsOrders(t *testing.T) {
	transmitter := &mockTransmitter{}
	store, processor := setup(t, transmitter, 1, 1, 2)

	result, err := processor.ProcessPage(context.Background(), []int64{1, 2}, "cron")
	require.NoError(t, err)

	assert.Equal(t, ports.PageStatusProcessed, result.Status)
	assert.Equal(t, 2, result.Succeeded)
	assert.Zero(t, result.Failed)
	require.Len(t, transmitter.sent, 2)
	assert.Equal(t, 1, transmitter.sent[0].Attempt)
	assert.Equal(t, "100", transmitter.sent[0].Data["increment_id"])
	assert.NotEmpty(t, transmitter.sent[0].RequestID)

	so := statusOf(t, store, 1)
	assert.Equal(t, domain.StatusSynced, so.Status)
	assert.Equal(t, 1, so.Attempts)
}

func TestProcessPageRetriesFailedOrders(t *testing.T) {
	transmitter := &mockTransmitter{
		sendFn: func(_ context.Context, p pipeline.Payload) error {
			if p.OrderID == 1 {
				return errors.New("timeout")
			}
			return nil
		},
	}
	store, processor := setup(t, transmitter, 2, 1, 2)

	result, err := processor.ProcessPage(context.Background(), []int64{1, 2}, "cron")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Messages[0], "timeout")

	assert.Equal(t, domain.StatusRetry, statusOf(t, store, 1).Status)
	assert.Equal(t, domain.StatusSynced, statusOf(t, store, 2).Status)
}

func TestProcessPageGivesUpAfterMaxAttempts(t *testing.T) {
	transmitter := &mockTransmitter{
		sendFn: func(context.Context, pipeline.Payload) error { return errors.New("rejected") },
	}
	store, processor := setup(t, transmitter, 1, 1)

	_, err := processor.ProcessPage(context.Background(), []int64{1}, "cron")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, statusOf(t, store, 1).Status)
}

func TestProcessPageStopsWhenEndpointUnavailable(t *testing.T) {
	t.Run("before sending", func(t *testing.T) {
		transmitter := &mockTransmitter{availableFn: func() bool { return false }}
		store, processor := setup(t, transmitter, 1, 1)

		result, err := processor.ProcessPage(context.Background(), []int64{1}, "cron")
		require.NoError(t, err)
		assert.Equal(t, ports.PageStatusNoMoreWork, result.Status)
		assert.Empty(t, transmitter.sent)
		assert.Equal(t, domain.StatusQueued, statusOf(t, store, 1).Status)
	})

	t.Run("after a send trips the breaker", func(t *testing.T) {
		transmitter := &mockTransmitter{
			sendFn: func(context.Context, pipeline.Payload) error { return pipeline.ErrUnavailable },
		}
		store, processor := setup(t, transmitter, 3, 1, 2)

		result, err := processor.ProcessPage(context.Background(), []int64{1, 2}, "cron")
		require.NoError(t, err)
		assert.Equal(t, ports.PageStatusNoMoreWork, result.Status)
		assert.Len(t, transmitter.sent, 1)
		assert.Equal(t, domain.StatusRetry, statusOf(t, store, 1).Status)
		assert.Equal(t, domain.StatusQueued, statusOf(t, store, 2).Status)
	})
}

func TestProcessPageCountsMissingOrders(t *testing.T) {
	transmitter := &mockTransmitter{}
	_, processor := setup(t, transmitter, 1)

	result, err := processor.ProcessPage(context.Background(), []int64{99}, "cron")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, transmitter.sent)
}
