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

const (
	itemsCollection  = "inventory_items"
	ledgerCollection = "inventory_transactions"
)

// ItemRepository is the MongoDB implementation of domain.ItemRepository.
// The counter write and the ledger append run in one session transaction.
type ItemRepository struct {
	client *mongoclient.Client
	items  *mongo.Collection
	ledger *mongo.Collection
}

// NewItemRepository creates the repository and ensures its indexes.
func NewItemRepository(ctx context.Context, client *mongoclient.Client) (*ItemRepository, error) {
	repo := &ItemRepository{
		client: client,
		items:  client.Collection(itemsCollection),
		ledger: client.Collection(ledgerCollection),
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *ItemRepository) ensureIndexes(ctx context.Context) error {
	itemIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "itemId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "quantityOnHand", Value: 1}},
		},
	}
	if _, err := r.items.Indexes().CreateMany(ctx, itemIndexes); err != nil {
		return fmt.Errorf("create item indexes: %w", err)
	}

	ledgerIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transactionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	}
	if _, err := r.ledger.Indexes().CreateMany(ctx, ledgerIndexes); err != nil {
		return fmt.Errorf("create ledger indexes: %w", err)
	}
	return nil
}

func (r *ItemRepository) Insert(ctx context.Context, item *domain.ItemStockRecord) error {
	_, err := r.items.InsertOne(ctx, item)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrItemAlreadyExists
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *ItemRepository) FindByItemID(ctx context.Context, itemID string) (*domain.ItemStockRecord, error) {
	var item domain.ItemStockRecord
	err := r.items.FindOne(ctx, bson.M{"itemId": itemID}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &item, nil
}

// ApplyMutation commits the counter CAS and the ledger append atomically.
// The version filter makes a stale read fail with ErrVersionConflict before
// anything is written.
func (r *ItemRepository) ApplyMutation(ctx context.Context, update domain.StockUpdate, entry *domain.LedgerEntry) error {
	_, err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		now := time.Now().UTC()

		set := bson.M{
			"quantityOnHand": update.NewQuantity,
			"updatedAt":      now,
		}
		if update.TouchRestock {
			set["lastRestockAt"] = now
		}
		if update.TouchStockCheck {
			set["lastStockCheckAt"] = now
		}

		filter := bson.M{
			"itemId":  update.ItemID,
			"version": update.ExpectedVersion,
		}
		res, err := r.items.UpdateOne(sessCtx, filter, bson.M{
			"$set": set,
			"$inc": bson.M{"version": 1},
		})
		if err != nil {
			return nil, fmt.Errorf("update counter: %w", err)
		}
		if res.MatchedCount == 0 {
			// Either the item vanished or another writer bumped the
			// version. Distinguish so callers retry only real races.
			count, err := r.items.CountDocuments(sessCtx, bson.M{"itemId": update.ItemID})
			if err != nil {
				return nil, fmt.Errorf("check item existence: %w", err)
			}
			if count == 0 {
				return nil, domain.ErrItemNotFound
			}
			return nil, domain.ErrVersionConflict
		}

		if _, err := r.ledger.InsertOne(sessCtx, entry); err != nil {
			return nil, fmt.Errorf("append ledger entry: %w", err)
		}
		return nil, nil
	})
	return err
}

func (r *ItemRepository) Delete(ctx context.Context, itemID string) error {
	res, err := r.items.DeleteOne(ctx, bson.M{"itemId": itemID})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// lowStockFilter matches items at or below their own reorder point but
// above zero; out-of-stock items are reported separately.
func lowStockFilter() bson.M {
	return bson.M{
		"$expr": bson.M{"$and": bson.A{
			bson.M{"$gt": bson.A{"$quantityOnHand", 0}},
			bson.M{"$lte": bson.A{"$quantityOnHand", "$reorderPoint"}},
		}},
	}
}

func outOfStockFilter() bson.M {
	return bson.M{"quantityOnHand": bson.M{"$lte": 0}}
}

func overstockFilter() bson.M {
	return bson.M{
		"$expr": bson.M{"$gt": bson.A{"$quantityOnHand", "$maxStockLevel"}},
	}
}

func (r *ItemRepository) findItems(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domain.ItemStockRecord, error) {
	cursor, err := r.items.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*domain.ItemStockRecord
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}

func (r *ItemRepository) FindLowStock(ctx context.Context) ([]*domain.ItemStockRecord, error) {
	return r.findItems(ctx, lowStockFilter(), options.Find().SetSort(bson.D{{Key: "quantityOnHand", Value: 1}}))
}

func (r *ItemRepository) FindOutOfStock(ctx context.Context) ([]*domain.ItemStockRecord, error) {
	return r.findItems(ctx, outOfStockFilter(), options.Find().SetSort(bson.D{{Key: "quantityOnHand", Value: 1}}))
}

func (r *ItemRepository) FindOverstock(ctx context.Context) ([]*domain.ItemStockRecord, error) {
	return r.findItems(ctx, overstockFilter(), options.Find().SetSort(bson.D{{Key: "quantityOnHand", Value: -1}}))
}

func (r *ItemRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.ItemStockRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "itemId", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts = opts.SetSkip(int64(offset))
	}
	return r.findItems(ctx, bson.M{}, opts)
}

func (r *ItemRepository) CountItems(ctx context.Context) (int64, error) {
	count, err := r.items.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// TotalInventoryValue sums quantity x cost price across items with positive
// quantity, in cents.
func (r *ItemRepository) TotalInventoryValue(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"quantityOnHand": bson.M{"$gt": 0}}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"total": bson.M{"$sum": bson.M{
				"$multiply": bson.A{"$quantityOnHand", "$costPrice"},
			}},
		}}},
	}

	cursor, err := r.items.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("aggregate inventory value: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("decode inventory value: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}
