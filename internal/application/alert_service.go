package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Almishev/pos-shop/internal/domain"
	"github.com/Almishev/pos-shop/pkg/logging"
	"github.com/Almishev/pos-shop/pkg/metrics"
)

// AlertService derives stock-health alerts from the counter state and
// manages their lifecycle.
type AlertService struct {
	alerts    domain.AlertRepository
	publisher EventPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewAlertService wires an AlertService. publisher and metrics may be nil.
func NewAlertService(alerts domain.AlertRepository, publisher EventPublisher, logger *logging.Logger, m *metrics.Metrics) *AlertService {
	return &AlertService{
		alerts:    alerts,
		publisher: publisher,
		logger:    logger.WithComponent("alert-service"),
		metrics:   m,
	}
}

// Evaluate applies the three stock-level rules against the item and raises
// the alerts whose conditions hold. The rules are disjoint on quantity:
// LOW_STOCK only fires above zero, so an item that drains to zero carries
// both alerts only when LOW_STOCK was raised on the way down. Evaluation
// failures are logged and never propagate; the stock mutation has already
// committed.
func (s *AlertService) Evaluate(ctx context.Context, item *domain.ItemStockRecord) {
	if item.QuantityOnHand <= 0 {
		s.raise(ctx, domain.NewAlert(
			item.ItemID,
			domain.AlertOutOfStock,
			fmt.Sprintf("Item %s is out of stock", item.Name),
			item.QuantityOnHand,
			0,
		))
	}
	if item.QuantityOnHand > 0 && item.QuantityOnHand <= item.ReorderPoint {
		s.raise(ctx, domain.NewAlert(
			item.ItemID,
			domain.AlertLowStock,
			fmt.Sprintf("Item %s is low on stock (%d remaining, reorder at %d)", item.Name, item.QuantityOnHand, item.ReorderPoint),
			item.QuantityOnHand,
			item.ReorderPoint,
		))
	}
	if item.QuantityOnHand > item.MaxStockLevel {
		s.raise(ctx, domain.NewAlert(
			item.ItemID,
			domain.AlertOverstock,
			fmt.Sprintf("Item %s is overstocked (%d on hand, maximum %d)", item.Name, item.QuantityOnHand, item.MaxStockLevel),
			item.QuantityOnHand,
			item.MaxStockLevel,
		))
	}
}

// raise inserts the alert unless an unresolved one of the same type exists.
func (s *AlertService) raise(ctx context.Context, alert *domain.Alert) {
	created, err := s.alerts.CreateIfAbsent(ctx, alert)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Alert creation failed",
			"itemId", alert.ItemID,
			"alertType", string(alert.Type),
		)
		return
	}
	if !created {
		return
	}

	if s.metrics != nil {
		s.metrics.RecordAlertRaised(string(alert.Type))
	}
	s.logger.WithContext(ctx).Warn("Alert raised",
		"alertId", alert.AlertID,
		"itemId", alert.ItemID,
		"alertType", string(alert.Type),
		"currentQuantity", alert.CurrentQuantity,
		"thresholdQuantity", alert.ThresholdQuantity,
	)

	if s.publisher != nil {
		event := &domain.AlertRaisedEvent{
			AlertID:           alert.AlertID,
			ItemID:            alert.ItemID,
			Type:              alert.Type,
			CurrentQuantity:   alert.CurrentQuantity,
			ThresholdQuantity: alert.ThresholdQuantity,
			RaisedAt:          alert.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, alert.ItemID, event); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Alert event publish failed", "alertId", alert.AlertID)
		}
	}
}

// RaiseManual raises an operator or system initiated alert, such as a theft
// suspicion or a quality issue, outside the stock-level rules.
func (s *AlertService) RaiseManual(ctx context.Context, itemID string, typ domain.AlertType, message string, currentQuantity, thresholdQuantity int) {
	s.raise(ctx, domain.NewAlert(itemID, typ, message, currentQuantity, thresholdQuantity))
}

// Resolve marks an alert resolved. Resolving a missing or already-resolved
// alert succeeds without effect.
func (s *AlertService) Resolve(ctx context.Context, alertID, resolvedBy string) error {
	alert, err := s.alerts.Resolve(ctx, alertID, resolvedBy)
	if err != nil {
		return mapDomainError(err)
	}
	if alert == nil {
		return nil
	}

	if s.metrics != nil {
		s.metrics.AlertsResolvedTotal.Inc()
	}
	s.logger.WithContext(ctx).Info("Alert resolved",
		"alertId", alertID,
		"resolvedBy", resolvedBy,
	)

	if s.publisher != nil {
		resolvedAt := time.Now().UTC()
		if alert.ResolvedAt != nil {
			resolvedAt = *alert.ResolvedAt
		}
		event := &domain.AlertResolvedEvent{
			AlertID:    alert.AlertID,
			ItemID:     alert.ItemID,
			Type:       alert.Type,
			ResolvedBy: resolvedBy,
			ResolvedAt: resolvedAt,
		}
		if err := s.publisher.Publish(ctx, alert.ItemID, event); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Alert event publish failed", "alertId", alertID)
		}
	}
	return nil
}

// ActiveAlerts lists all unresolved alerts.
func (s *AlertService) ActiveAlerts(ctx context.Context) ([]*domain.Alert, error) {
	alerts, err := s.alerts.FindActive(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return alerts, nil
}

// ActiveAlertsForItem lists unresolved alerts for one item.
func (s *AlertService) ActiveAlertsForItem(ctx context.Context, itemID string) ([]*domain.Alert, error) {
	alerts, err := s.alerts.FindActiveByItemID(ctx, itemID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return alerts, nil
}
