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

// LedgerRepository reads the transaction ledger. Writes only happen through
// ItemRepository.ApplyMutation; this repository never mutates entries.
type LedgerRepository struct {
	ledger *mongo.Collection
}

// NewLedgerRepository creates the read-side ledger repository. Indexes are
// owned by ItemRepository, which owns the collection's writes.
func NewLedgerRepository(client *mongoclient.Client) *LedgerRepository {
	return &LedgerRepository{
		ledger: client.Collection(ledgerCollection),
	}
}

func (r *LedgerRepository) findEntries(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domain.LedgerEntry, error) {
	cursor, err := r.ledger.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.LedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode ledger entries: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepository) FindByItemID(ctx context.Context, itemID string) ([]*domain.LedgerEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.findEntries(ctx, bson.M{"itemId": itemID}, opts)
}

func (r *LedgerRepository) FindRecent(ctx context.Context, limit int) ([]*domain.LedgerEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return r.findEntries(ctx, bson.M{}, opts)
}

func (r *LedgerRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := r.ledger.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("find ledger entry: %w", err)
	}
	return &entry, nil
}
