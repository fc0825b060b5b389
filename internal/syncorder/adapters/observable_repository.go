package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/ordersync/internal/database"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
	"github.com/dejobratic/ordersync/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ObservableSyncOrderRepository struct {
	repo    ports.SyncOrderRepository
	metrics *database.Metrics
}

func NewObservableSyncOrderRepository(repo ports.SyncOrderRepository, metrics *database.Metrics) *ObservableSyncOrderRepository {
	return &ObservableSyncOrderRepository{
		repo:    repo,
		metrics: metrics,
	}
}

// observe runs fn inside a span and records its duration under operation.
func observe(ctx context.Context, metrics *database.Metrics, spanName, operation string, attrs []attribute.KeyValue, fn func(ctx context.Context, span trace.Span) error) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span, append(attrs, attribute.String("operation", operation))...)

	start := time.Now()
	err := fn(ctx, span)
	duration := time.Since(start).Seconds()

	metrics.RecordQuery(ctx, operation, duration, err != nil && !errors.Is(err, ports.ErrNotFound))

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (r *ObservableSyncOrderRepository) GetByOrderID(ctx context.Context, orderID int64) (*domain.SyncOrder, error) {
	var out *domain.SyncOrder
	err := observe(ctx, r.metrics, "SyncOrderRepository.GetByOrderID", "get_sync_order_by_order_id",
		[]attribute.KeyValue{telemetry.OrderIDKey.Int64(orderID)},
		func(ctx context.Context, _ trace.Span) error {
			var err error
			out, err = r.repo.GetByOrderID(ctx, orderID)
			return err
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ObservableSyncOrderRepository) GetByID(ctx context.Context, id int64) (*domain.SyncOrder, error) {
	var out *domain.SyncOrder
	err := observe(ctx, r.metrics, "SyncOrderRepository.GetByID", "get_sync_order_by_id",
		[]attribute.KeyValue{telemetry.SyncOrderIDKey.Int64(id)},
		func(ctx context.Context, _ trace.Span) error {
			var err error
			out, err = r.repo.GetByID(ctx, id)
			return err
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ObservableSyncOrderRepository) Save(ctx context.Context, syncOrder domain.SyncOrder) (*domain.SyncOrder, error) {
	var out *domain.SyncOrder
	err := observe(ctx, r.metrics, "SyncOrderRepository.Save", "save_sync_order",
		[]attribute.KeyValue{
			telemetry.OrderIDKey.Int64(syncOrder.OrderID),
			attribute.String("sync_order.new_status", syncOrder.Status.String()),
		},
		func(ctx context.Context, _ trace.Span) error {
			var err error
			out, err = r.repo.Save(ctx, syncOrder)
			return err
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ObservableSyncOrderRepository) Delete(ctx context.Context, syncOrder domain.SyncOrder) error {
	return observe(ctx, r.metrics, "SyncOrderRepository.Delete", "delete_sync_order",
		[]attribute.KeyValue{telemetry.SyncOrderIDKey.Int64(syncOrder.EntityID)},
		func(ctx context.Context, _ trace.Span) error {
			return r.repo.Delete(ctx, syncOrder)
		})
}

func (r *ObservableSyncOrderRepository) List(ctx context.Context, criteria ports.SearchCriteria) (ports.SyncOrderList, error) {
	attrs := []attribute.KeyValue{
		attribute.Int("page", criteria.CurrentPage),
		attribute.Int("page_size", criteria.PageSize),
		attribute.Int64("after_entity_id", criteria.AfterEntityID),
	}
	for _, status := range criteria.SyncStatuses {
		attrs = append(attrs, attribute.String("filter.status", status.String()))
	}

	var out ports.SyncOrderList
	err := observe(ctx, r.metrics, "SyncOrderRepository.List", "list_sync_orders", attrs,
		func(ctx context.Context, span trace.Span) error {
			var err error
			out, err = r.repo.List(ctx, criteria)
			if err == nil {
				telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(out.Items)))
			}
			return err
		})
	if err != nil {
		return ports.SyncOrderList{}, err
	}
	return out, nil
}

func (r *ObservableSyncOrderRepository) ClearCache() {
	r.repo.ClearCache()
}

type ObservableHistoryRepository struct {
	repo    ports.HistoryRepository
	metrics *database.Metrics
}

func NewObservableHistoryRepository(repo ports.HistoryRepository, metrics *database.Metrics) *ObservableHistoryRepository {
	return &ObservableHistoryRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableHistoryRepository) GetByID(ctx context.Context, id int64) (*domain.History, error) {
	var out *domain.History
	err := observe(ctx, r.metrics, "HistoryRepository.GetByID", "get_history_by_id",
		[]attribute.KeyValue{attribute.Int64("history.id", id)},
		func(ctx context.Context, _ trace.Span) error {
			var err error
			out, err = r.repo.GetByID(ctx, id)
			return err
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ObservableHistoryRepository) Save(ctx context.Context, history domain.History) (*domain.History, error) {
	var out *domain.History
	err := observe(ctx, r.metrics, "HistoryRepository.Save", "save_history",
		[]attribute.KeyValue{
			telemetry.SyncOrderIDKey.Int64(history.SyncOrderID),
			attribute.String("history.action", string(history.Action)),
		},
		func(ctx context.Context, _ trace.Span) error {
			var err error
			out, err = r.repo.Save(ctx, history)
			return err
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ObservableHistoryRepository) Delete(ctx context.Context, history domain.History) error {
	return observe(ctx, r.metrics, "HistoryRepository.Delete", "delete_history",
		[]attribute.KeyValue{attribute.Int64("history.id", history.EntityID)},
		func(ctx context.Context, _ trace.Span) error {
			return r.repo.Delete(ctx, history)
		})
}

func (r *ObservableHistoryRepository) List(ctx context.Context, criteria ports.HistoryCriteria) (ports.HistoryList, error) {
	attrs := []attribute.KeyValue{
		attribute.Int("limit", criteria.Limit),
		attribute.Int64("after_entity_id", criteria.AfterEntityID),
	}
	if criteria.SyncStatus != nil {
		attrs = append(attrs, attribute.String("filter.status", criteria.SyncStatus.String()))
	}

	var out ports.HistoryList
	err := observe(ctx, r.metrics, "HistoryRepository.List", "list_history", attrs,
		func(ctx context.Context, span trace.Span) error {
			var err error
			out, err = r.repo.List(ctx, criteria)
			if err == nil {
				telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(out.Items)))
			}
			return err
		})
	if err != nil {
		return ports.HistoryList{}, err
	}
	return out, nil
}

func (r *ObservableHistoryRepository) CreateFromSyncOrder(
	ctx context.Context,
	syncOrder domain.SyncOrder,
	action domain.Action,
	via string,
	result domain.Result,
	info map[string]any,
) (*domain.History, error) {
	var out *domain.History
	err := observe(ctx, r.metrics, "HistoryRepository.CreateFromSyncOrder", "create_history",
		[]attribute.KeyValue{
			telemetry.SyncOrderIDKey.Int64(syncOrder.EntityID),
			attribute.String("history.action", string(action)),
			attribute.String("history.result", string(result)),
		},
		func(ctx context.Context, _ trace.Span) error {
			var err error
			out, err = r.repo.CreateFromSyncOrder(ctx, syncOrder, action, via, result, info)
			return err
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ObservableHistoryRepository) ClearCache() {
	r.repo.ClearCache()
}
