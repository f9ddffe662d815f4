package repository

import (
	"context"
	"fmt"
	"time"

	"nebula-shopify-bridge/internal/domain"
	"nebula-shopify-bridge/internal/infrastructure/repository/entity"
	"nebula-shopify-bridge/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository using MongoDB.
type MongoRepository struct {
	shopsCollection     *mongo.Collection
	reconcileCollection *mongo.Collection
}

// NewMongoRepository creates a new MongoDB repository.
func NewMongoRepository(db *mongo.Database) ports.Repository {
	return &MongoRepository{
		shopsCollection:     db.Collection("shops"),
		reconcileCollection: db.Collection("reconcile_runs"),
	}
}

// SaveShop saves or updates a shop keyed by domain.
func (r *MongoRepository) SaveShop(ctx context.Context, shop *domain.Shop) error {
	doc := entity.MongoShopDocFromDomain(shop)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"domain": shop.Domain}
	update := bson.M{"$set": doc}

	_, err := r.shopsCollection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save shop: %w", err)
	}

	return nil
}

// GetShop retrieves a shop by domain.
func (r *MongoRepository) GetShop(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	var doc entity.MongoShopDoc
	filter := bson.M{"domain": shopDomain}

	err := r.shopsCollection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListShops retrieves all shops.
func (r *MongoRepository) ListShops(ctx context.Context) ([]*domain.Shop, error) {
	cursor, err := r.shopsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer cursor.Close(ctx)

	var shops []*domain.Shop
	for cursor.Next(ctx) {
		var doc entity.MongoShopDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode shop: %w", err)
		}
		shops = append(shops, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return shops, nil
}

// DeleteShop removes a shop by domain.
func (r *MongoRepository) DeleteShop(ctx context.Context, shopDomain string) error {
	_, err := r.shopsCollection.DeleteOne(ctx, bson.M{"domain": shopDomain})
	if err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	return nil
}

// LogReconcile appends a reconciliation audit record.
func (r *MongoRepository) LogReconcile(ctx context.Context, record *domain.ReconcileRecord) error {
	doc := entity.MongoReconcileDocFromDomain(record)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err := r.reconcileCollection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log reconcile run: %w", err)
	}

	return nil
}
