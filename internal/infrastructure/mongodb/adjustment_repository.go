package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Almishev/pos-shop/internal/domain"
	mongoclient "github.com/Almishev/pos-shop/pkg/mongodb"
)

const adjustmentsCollection = "inventory_adjustments"

// AdjustmentRepository persists the append-only adjustment log.
type AdjustmentRepository struct {
	adjustments *mongo.Collection
}

// NewAdjustmentRepository creates the repository and ensures its indexes.
func NewAdjustmentRepository(ctx context.Context, client *mongoclient.Client) (*AdjustmentRepository, error) {
	repo := &AdjustmentRepository{
		adjustments: client.Collection(adjustmentsCollection),
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "adjustmentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}
	if _, err := repo.adjustments.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("create adjustment indexes: %w", err)
	}
	return repo, nil
}

func (r *AdjustmentRepository) Append(ctx context.Context, adjustment *domain.AdjustmentRecord) error {
	if _, err := r.adjustments.InsertOne(ctx, adjustment); err != nil {
		return fmt.Errorf("append adjustment: %w", err)
	}
	return nil
}

func (r *AdjustmentRepository) FindByItemID(ctx context.Context, itemID string) ([]*domain.AdjustmentRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.adjustments.Find(ctx, bson.M{"itemId": itemID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find adjustments: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.AdjustmentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode adjustments: %w", err)
	}
	return records, nil
}
