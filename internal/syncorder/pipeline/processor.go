// Package pipeline is the default order processing pipeline: every order in
// a page is marked processing, transmitted, then settled.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dejobratic/ordersync/internal/syncorder/app/commands"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// Processor implements ports.PageProcessor on top of the sync actions.
type Processor struct {
	handler     commands.Handler
	orders      ports.OrderLookup
	builder     PayloadBuilder
	transmitter Transmitter
	logger      *slog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(
	handler commands.Handler,
	orders ports.OrderLookup,
	builder PayloadBuilder,
	transmitter Transmitter,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = OrderSummaryBuilder{}
	}
	return &Processor{
		handler:     handler,
		orders:      orders,
		builder:     builder,
		transmitter: transmitter,
		logger:      logger,
	}
}

// ProcessPage handles orders one by one. It reports no more work as soon as
// the endpoint becomes unavailable, leaving the rest of the page untouched.
func (p *Processor) ProcessPage(ctx context.Context, orderIDs []int64, via string) (ports.PageResult, error) {
	result := ports.PageResult{Status: ports.PageStatusProcessed}

	for _, orderID := range orderIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !p.transmitter.Available() {
			p.logger.WarnContext(ctx, "analytics endpoint unavailable, stopping page", "order_id", orderID)
			result.Status = ports.PageStatusNoMoreWork
			return result, nil
		}

		result.Processed++
		err := p.processOrder(ctx, orderID, via)
		if err != nil {
			result.Failed++
			result.Messages = append(result.Messages, fmt.Sprintf("order %d: %v", orderID, err))
			if errors.Is(err, ErrUnavailable) {
				result.Status = ports.PageStatusNoMoreWork
				return result, nil
			}
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (p *Processor) processOrder(ctx context.Context, orderID int64, via string) error {
	order, err := p.orders.Get(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}

	started, err := p.handler.MarkProcessing(ctx, commands.MarkProcessingCommand{OrderID: orderID, Via: via})
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	sendErr := p.send(ctx, *order, started)
	if sendErr != nil {
		p.logger.WarnContext(ctx, "order transmission failed",
			"order_id", order.ID,
			"store_id", order.StoreID,
			"error", sendErr,
		)
		_, err := p.handler.ProcessFailedSync(ctx, commands.ProcessFailedSyncCommand{
			Order:                 *order,
			Via:                   via,
			AdditionalInformation: map[string]any{"error": sendErr.Error()},
		})
		if err != nil {
			return errors.Join(sendErr, fmt.Errorf("process failed sync: %w", err))
		}
		return sendErr
	}

	done, err := p.handler.MarkProcessed(ctx, commands.MarkProcessedCommand{
		OrderID:      orderID,
		ResultStatus: domain.StatusSynced,
		Via:          via,
	})
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	if !done.Success {
		return fmt.Errorf("mark processed: %v", done.Messages)
	}
	return nil
}

func (p *Processor) send(ctx context.Context, order domain.Order, started commands.ActionResult) error {
	data, err := p.builder.Build(ctx, order)
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	attempt := 0
	if started.SyncOrder != nil {
		attempt = started.SyncOrder.Attempts
	}
	return p.transmitter.Send(ctx, Payload{
		RequestID: uuid.NewString(),
		OrderID:   order.ID,
		StoreID:   order.StoreID,
		Attempt:   attempt,
		SentAt:    time.Now().UTC(),
		Data:      data,
	})
}
