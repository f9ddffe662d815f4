package entity

import (
	"time"

	"nebula-shopify-bridge/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoShopDoc represents a shop in MongoDB.
type MongoShopDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Domain      string             `bson:"domain"`
	AccessToken string             `bson:"accessToken"`
	Scopes      []string           `bson:"scopes"`
	InstalledAt time.Time          `bson:"installedAt"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity.
func (d *MongoShopDoc) ToDomain() *domain.Shop {
	return &domain.Shop{
		ID:          d.ID.Hex(),
		Domain:      d.Domain,
		AccessToken: d.AccessToken,
		Scopes:      d.Scopes,
		InstalledAt: d.InstalledAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoShopDocFromDomain converts a domain entity to a MongoDB document.
func MongoShopDocFromDomain(shop *domain.Shop) *MongoShopDoc {
	doc := &MongoShopDoc{
		Domain:      shop.Domain,
		AccessToken: shop.AccessToken,
		Scopes:      shop.Scopes,
		InstalledAt: shop.InstalledAt,
		UpdatedAt:   shop.UpdatedAt,
	}

	if shop.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(shop.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}

// MongoReconcileDoc represents a reconciliation audit record in MongoDB.
type MongoReconcileDoc struct {
	ID        string    `bson:"_id"`
	Shop      string    `bson:"shop"`
	Strategy  string    `bson:"strategy"`
	Status    string    `bson:"status,omitempty"`
	Error     string    `bson:"error,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

// MongoReconcileDocFromDomain converts a domain record to a MongoDB document.
func MongoReconcileDocFromDomain(record *domain.ReconcileRecord) *MongoReconcileDoc {
	return &MongoReconcileDoc{
		ID:        record.ID,
		Shop:      record.Shop,
		Strategy:  string(record.Strategy),
		Status:    string(record.Status),
		Error:     record.Error,
		CreatedAt: record.CreatedAt,
	}
}
