package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Almishev/pos-shop/internal/domain"
	apperrors "github.com/Almishev/pos-shop/pkg/errors"
	"github.com/Almishev/pos-shop/pkg/idempotency"
	"github.com/Almishev/pos-shop/pkg/logging"
	"github.com/Almishev/pos-shop/pkg/metrics"
)

const (
	// maxMutationAttempts bounds the optimistic concurrency retry loop.
	maxMutationAttempts = 5
	retryBackoffBase    = 10 * time.Millisecond
)

// EventPublisher is the outbound port for domain events. Publishing is
// best-effort; the ledger remains the source of truth.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event domain.DomainEvent) error
}

// AlertEvaluator re-derives stock-health alerts after a mutation.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, item *domain.ItemStockRecord)
}

// StockService coordinates all stock mutations: the idempotency claim, the
// optimistic read-compute-write loop, and the post-commit side effects.
type StockService struct {
	items       domain.ItemRepository
	adjustments domain.AdjustmentRepository
	keys        idempotency.KeyStore
	alerts      AlertEvaluator
	publisher   EventPublisher
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewStockService wires a StockService. keys, alerts, publisher and metrics
// may be nil; the corresponding step is skipped.
func NewStockService(
	items domain.ItemRepository,
	adjustments domain.AdjustmentRepository,
	keys idempotency.KeyStore,
	alerts AlertEvaluator,
	publisher EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *StockService {
	return &StockService{
		items:       items,
		adjustments: adjustments,
		keys:        keys,
		alerts:      alerts,
		publisher:   publisher,
		logger:      logger.WithComponent("stock-service"),
		metrics:     m,
	}
}

// CreateItem catalogues a new item for stock tracking.
func (s *StockService) CreateItem(ctx context.Context, cmd CreateItemCommand) (*ItemStockView, error) {
	if cmd.ItemID == "" {
		return nil, apperrors.NewValidation("itemId is required")
	}
	if cmd.Name == "" {
		return nil, apperrors.NewValidation("name is required")
	}

	item := domain.NewItemStockRecord(cmd.ItemID, cmd.Name, cmd.Barcode)
	if cmd.MinStockLevel != nil {
		item.MinStockLevel = *cmd.MinStockLevel
	}
	if cmd.MaxStockLevel != nil {
		item.MaxStockLevel = *cmd.MaxStockLevel
	}
	if cmd.ReorderPoint != nil {
		item.ReorderPoint = *cmd.ReorderPoint
	}
	if cmd.UnitOfMeasure != "" {
		item.UnitOfMeasure = cmd.UnitOfMeasure
	}
	if cmd.CostPrice != nil {
		item.CostPrice = *cmd.CostPrice
	}
	item.SupplierName = cmd.SupplierName
	item.SupplierCode = cmd.SupplierCode

	if err := s.items.Insert(ctx, item); err != nil {
		return nil, mapDomainError(err)
	}

	s.logger.WithContext(ctx).Info("Item catalogued", "itemId", item.ItemID, "name", item.Name)
	s.publishEvent(ctx, item.ItemID, &domain.ItemCreatedEvent{
		ItemID:       item.ItemID,
		Name:         item.Name,
		ReorderPoint: item.ReorderPoint,
		MaxStock:     item.MaxStockLevel,
		CreatedAt:    item.CreatedAt,
	})

	return NewItemStockView(item), nil
}

// DeleteItem removes an item's stock record. Its ledger and adjustment
// history are retained for audit.
func (s *StockService) DeleteItem(ctx context.Context, itemID string) error {
	if err := s.items.Delete(ctx, itemID); err != nil {
		return mapDomainError(err)
	}
	s.logger.WithContext(ctx).Info("Item removed from tracking", "itemId", itemID)
	s.publishEvent(ctx, itemID, &domain.ItemDeletedEvent{
		ItemID:    itemID,
		DeletedAt: time.Now().UTC(),
	})
	return nil
}

// AddStock increases the quantity on hand. The transaction type defaults to
// PURCHASE when not supplied.
func (s *StockService) AddStock(ctx context.Context, cmd StockCommand) (*MutationResult, error) {
	if cmd.Quantity <= 0 {
		return nil, mapDomainError(domain.ErrInvalidQuantity)
	}
	typ, err := resolveType(cmd.TransactionType, domain.TransactionPurchase)
	if err != nil {
		return nil, mapDomainError(err)
	}

	return s.mutate(ctx, mutation{
		op:           "add",
		itemID:       cmd.ItemID,
		key:          cmd.IdempotencyKey,
		typ:          typ,
		touchRestock: true,
		delta: func(current int) int {
			return cmd.Quantity
		},
		unitPrice: cmd.UnitPrice,
		reference: reference{cmd.ReferenceNumber, cmd.ReferenceType},
		notes:     cmd.Notes,
		actor:     cmd.Actor,
	})
}

// RemoveStock decreases the quantity on hand. The quantity may exceed the
// current counter: the result goes negative and is flagged, never rejected.
// The transaction type defaults to SALE.
func (s *StockService) RemoveStock(ctx context.Context, cmd StockCommand) (*MutationResult, error) {
	if cmd.Quantity <= 0 {
		return nil, mapDomainError(domain.ErrInvalidQuantity)
	}
	typ, err := resolveType(cmd.TransactionType, domain.TransactionSale)
	if err != nil {
		return nil, mapDomainError(err)
	}

	return s.mutate(ctx, mutation{
		op:              "remove",
		itemID:          cmd.ItemID,
		key:             cmd.IdempotencyKey,
		typ:             typ,
		touchStockCheck: true,
		delta: func(current int) int {
			return -cmd.Quantity
		},
		unitPrice: cmd.UnitPrice,
		reference: reference{cmd.ReferenceNumber, cmd.ReferenceType},
		notes:     cmd.Notes,
		actor:     cmd.Actor,
	})
}

// SetStock sets the absolute quantity, typically after a physical count.
// A zero delta still commits a ledger entry recording the confirmation.
func (s *StockService) SetStock(ctx context.Context, cmd StockCommand) (*MutationResult, error) {
	if cmd.Quantity < 0 {
		return nil, mapDomainError(fmt.Errorf("%w: target quantity cannot be negative", domain.ErrInvalidQuantity))
	}

	notes := cmd.Notes
	if notes == "" {
		notes = "Stock count"
	}

	return s.mutate(ctx, mutation{
		op:              "set",
		itemID:          cmd.ItemID,
		key:             cmd.IdempotencyKey,
		typ:             domain.TransactionAdjustment,
		touchStockCheck: true,
		delta: func(current int) int {
			return cmd.Quantity - current
		},
		unitPrice: cmd.UnitPrice,
		reference: reference{cmd.ReferenceNumber, cmd.ReferenceType},
		notes:     notes,
		actor:     cmd.Actor,
	})
}

// AdjustStock applies a signed manual correction. The adjustment record is
// appended before the stock mutation and its id becomes the ledger entry's
// reference, so every ADJUSTMENT entry links back to its adjustment. A
// failed mutation can leave an adjustment record without a ledger entry,
// never the reverse.
func (s *StockService) AdjustStock(ctx context.Context, cmd AdjustStockCommand) (*MutationResult, error) {
	if cmd.Quantity == 0 {
		return nil, apperrors.NewValidation("adjustment quantity cannot be zero")
	}
	adjType, err := domain.ParseAdjustmentType(cmd.AdjustmentType)
	if err != nil {
		return nil, mapDomainError(err)
	}
	adjustment, err := domain.NewAdjustmentRecord(cmd.ItemID, adjType, cmd.Quantity, cmd.Reason, cmd.Notes, cmd.Actor)
	if err != nil {
		return nil, mapDomainError(err)
	}

	return s.mutate(ctx, mutation{
		op:              "adjust",
		itemID:          cmd.ItemID,
		key:             cmd.IdempotencyKey,
		typ:             domain.TransactionAdjustment,
		touchStockCheck: true,
		prepare: func(ctx context.Context) error {
			return s.adjustments.Append(ctx, adjustment)
		},
		delta: func(current int) int {
			return cmd.Quantity
		},
		reference: reference{adjustment.AdjustmentID, "ADJUSTMENT"},
		notes:     cmd.Notes,
		actor:     cmd.Actor,
	})
}

// ProcessSale is the POS hook for a completed sale line.
func (s *StockService) ProcessSale(ctx context.Context, cmd SaleCommand) (*MutationResult, error) {
	return s.RemoveStock(ctx, StockCommand{
		ItemID:          cmd.ItemID,
		Quantity:        cmd.Quantity,
		TransactionType: string(domain.TransactionSale),
		UnitPrice:       cmd.UnitPrice,
		ReferenceNumber: cmd.OrderNumber,
		ReferenceType:   "ORDER",
		Actor:           cmd.Actor,
		IdempotencyKey:  cmd.IdempotencyKey,
	})
}

// ProcessPurchase is the receiving hook for a purchase delivery line.
func (s *StockService) ProcessPurchase(ctx context.Context, cmd PurchaseCommand) (*MutationResult, error) {
	return s.AddStock(ctx, StockCommand{
		ItemID:          cmd.ItemID,
		Quantity:        cmd.Quantity,
		TransactionType: string(domain.TransactionPurchase),
		UnitPrice:       cmd.UnitPrice,
		ReferenceNumber: cmd.PurchaseNumber,
		ReferenceType:   "PURCHASE_ORDER",
		Actor:           cmd.Actor,
		IdempotencyKey:  cmd.IdempotencyKey,
	})
}

type reference struct {
	number string
	typ    string
}

// mutation is the internal description of one stock write. delta computes
// the signed change from the quantity observed by the consistent read, so
// SetStock can derive its delta from the current counter. prepare, when set,
// persists companion records after the idempotency claim and before the
// counter write; a replayed request never reaches it.
type mutation struct {
	op              string
	itemID          string
	key             string
	typ             domain.TransactionType
	prepare         func(ctx context.Context) error
	delta           func(current int) int
	unitPrice       *int64
	reference       reference
	notes           string
	actor           string
	touchRestock    bool
	touchStockCheck bool
}

// mutate runs the full mutation protocol: idempotency claim, bounded
// read-compute-write loop, key completion, then post-commit side effects.
func (s *StockService) mutate(ctx context.Context, m mutation) (*MutationResult, error) {
	log := s.logger.WithContext(ctx)

	if m.key != "" && s.keys != nil {
		stored, err := s.keys.Claim(ctx, m.itemID, m.op, m.key)
		if err != nil {
			if errors.Is(err, idempotency.ErrDuplicateInProgress) {
				return nil, mapDomainError(domain.ErrMutationInProgress)
			}
			return nil, mapDomainError(err)
		}
		if stored != nil && stored.Result != nil {
			if s.metrics != nil {
				s.metrics.IdempotentReplaysTotal.Inc()
			}
			log.Info("Idempotent replay", "itemId", m.itemID, "operation", m.op, "key", m.key)
			return &MutationResult{
				TransactionID:    stored.Result.TransactionID,
				ItemID:           m.itemID,
				PreviousQuantity: stored.Result.PreviousQuantity,
				NewQuantity:      stored.Result.NewQuantity,
				Replayed:         true,
			}, nil
		}
	}

	releaseKey := func() {
		if m.key == "" || s.keys == nil {
			return
		}
		if relErr := s.keys.Release(ctx, m.itemID, m.op, m.key); relErr != nil {
			log.WithError(relErr).Warn("Idempotency key release failed", "itemId", m.itemID, "key", m.key)
		}
	}

	if m.prepare != nil {
		if err := m.prepare(ctx); err != nil {
			releaseKey()
			return nil, mapDomainError(err)
		}
	}

	item, entry, err := s.applyWithRetry(ctx, m)
	if err != nil {
		releaseKey()
		return nil, mapDomainError(err)
	}

	if m.key != "" && s.keys != nil {
		err := s.keys.Complete(ctx, m.itemID, m.op, m.key, idempotency.Result{
			TransactionID:    entry.TransactionID,
			PreviousQuantity: entry.PreviousQuantity,
			NewQuantity:      entry.NewQuantity,
		})
		if err != nil {
			// The mutation is committed; a lost completion only risks a
			// duplicate-in-progress answer for replays until the TTL fires.
			log.WithError(err).Warn("Idempotency key completion failed", "itemId", m.itemID, "key", m.key)
		}
	}

	if entry.NewQuantity < 0 {
		log.Warn("Stock went negative",
			"itemId", m.itemID,
			"quantity", entry.NewQuantity,
			"transactionId", entry.TransactionID,
		)
	}

	if s.metrics != nil {
		s.metrics.RecordStockMutation(string(entry.Type))
	}
	log.Info("Stock mutation committed",
		"itemId", m.itemID,
		"transactionId", entry.TransactionID,
		"transactionType", string(entry.Type),
		"delta", entry.Delta,
		"previousQuantity", entry.PreviousQuantity,
		"newQuantity", entry.NewQuantity,
		"actor", entry.Actor,
	)

	if s.alerts != nil {
		s.alerts.Evaluate(ctx, item)
	}
	s.publishEvent(ctx, item.ItemID, &domain.StockMutatedEvent{
		ItemID:           entry.ItemID,
		TransactionID:    entry.TransactionID,
		Type:             entry.Type,
		Delta:            entry.Delta,
		PreviousQuantity: entry.PreviousQuantity,
		NewQuantity:      entry.NewQuantity,
		ReferenceNumber:  entry.ReferenceNumber,
		Actor:            entry.Actor,
		OccurredAt:       entry.CreatedAt,
	})

	return &MutationResult{
		TransactionID:    entry.TransactionID,
		ItemID:           entry.ItemID,
		PreviousQuantity: entry.PreviousQuantity,
		NewQuantity:      entry.NewQuantity,
	}, nil
}

// applyWithRetry loops read-compute-write until the CAS lands or the attempt
// limit is hit. Each retry re-reads the counter so the delta and the
// ledger entry are computed from fresh state.
func (s *StockService) applyWithRetry(ctx context.Context, m mutation) (*domain.ItemStockRecord, *domain.LedgerEntry, error) {
	for attempt := 1; attempt <= maxMutationAttempts; attempt++ {
		item, err := s.items.FindByItemID(ctx, m.itemID)
		if err != nil {
			return nil, nil, err
		}

		delta := m.delta(item.QuantityOnHand)
		entry, err := domain.NewLedgerEntry(
			m.itemID, m.typ, delta, item.QuantityOnHand,
			m.unitPrice, m.reference.number, m.reference.typ, m.notes, m.actor,
		)
		if err != nil {
			return nil, nil, err
		}

		update := domain.StockUpdate{
			ItemID:          m.itemID,
			ExpectedVersion: item.Version,
			NewQuantity:     entry.NewQuantity,
			TouchRestock:    m.touchRestock,
			TouchStockCheck: m.touchStockCheck,
		}

		err = s.items.ApplyMutation(ctx, update, entry)
		if err == nil {
			item.QuantityOnHand = entry.NewQuantity
			item.Version++
			return item, entry, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, nil, err
		}

		if s.metrics != nil {
			s.metrics.VersionConflictRetries.Inc()
		}
		if attempt == maxMutationAttempts {
			break
		}

		backoff := time.Duration(attempt)*retryBackoffBase + time.Duration(rand.Int63n(int64(retryBackoffBase)))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	return nil, nil, domain.ErrVersionConflict
}

func (s *StockService) publishEvent(ctx context.Context, subject string, event domain.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Event publish failed",
			"eventType", event.EventType(),
			"subject", subject,
		)
	}
}

func resolveType(raw string, fallback domain.TransactionType) (domain.TransactionType, error) {
	if raw == "" {
		return fallback, nil
	}
	return domain.ParseTransactionType(raw)
}
