package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Almishev/pos-shop/internal/domain"
	mongoclient "github.com/Almishev/pos-shop/pkg/mongodb"
)

const alertsCollection = "inventory_alerts"

// AlertRepository persists stock-health alerts. A partial unique index on
// (itemId, alertType) over unresolved alerts makes check-then-create atomic
// with respect to concurrent writers.
type AlertRepository struct {
	alerts *mongo.Collection
}

// NewAlertRepository creates the repository and ensures its indexes.
func NewAlertRepository(ctx context.Context, client *mongoclient.Client) (*AlertRepository, error) {
	repo := &AlertRepository{
		alerts: client.Collection(alertsCollection),
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "alertId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "alertType", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isResolved": false}),
		},
		{
			Keys: bson.D{{Key: "isResolved", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}
	if _, err := repo.alerts.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("create alert indexes: %w", err)
	}
	return repo, nil
}

// CreateIfAbsent inserts the alert. A duplicate-key error means an
// unresolved alert of this type already exists; the insert is suppressed.
func (r *AlertRepository) CreateIfAbsent(ctx context.Context, alert *domain.Alert) (bool, error) {
	_, err := r.alerts.InsertOne(ctx, alert)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert alert: %w", err)
	}
	return true, nil
}

// Resolve marks the alert resolved. Filtering on isResolved makes repeat
// calls no-ops; (nil, nil) means nothing was changed.
func (r *AlertRepository) Resolve(ctx context.Context, alertID, resolvedBy string) (*domain.Alert, error) {
	now := time.Now().UTC()
	filter := bson.M{"alertId": alertID, "isResolved": false}
	update := bson.M{"$set": bson.M{
		"isResolved": true,
		"resolvedAt": now,
		"resolvedBy": resolvedBy,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var alert domain.Alert
	err := r.alerts.FindOneAndUpdate(ctx, filter, update, opts).Decode(&alert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve alert: %w", err)
	}
	return &alert, nil
}

func (r *AlertRepository) findAlerts(ctx context.Context, filter bson.M) ([]*domain.Alert, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.alerts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find alerts: %w", err)
	}
	defer cursor.Close(ctx)

	var alerts []*domain.Alert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}
	return alerts, nil
}

func (r *AlertRepository) FindActive(ctx context.Context) ([]*domain.Alert, error) {
	return r.findAlerts(ctx, bson.M{"isResolved": false})
}

func (r *AlertRepository) FindActiveByItemID(ctx context.Context, itemID string) ([]*domain.Alert, error) {
	return r.findAlerts(ctx, bson.M{"isResolved": false, "itemId": itemID})
}

func (r *AlertRepository) CountActive(ctx context.Context) (int64, error) {
	count, err := r.alerts.CountDocuments(ctx, bson.M{"isResolved": false})
	if err != nil {
		return 0, fmt.Errorf("count active alerts: %w", err)
	}
	return count, nil
}
