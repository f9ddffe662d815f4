package repository

import (
	"context"
	"fmt"
	"time"

	"nebula-shopify-bridge/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionRepository persists OAuth sessions in MongoDB, keyed by state.
type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{
		collection: db.Collection("oauth_sessions"),
	}
}

// CreateSession stores a session. A TTL index on expiresAt lets MongoDB
// garbage-collect abandoned flows.
func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	doc := bson.M{
		"shop":      session.Shop,
		"state":     session.State,
		"scopes":    session.Scopes,
		"returnUrl": session.ReturnURL,
		"expiresAt": session.ExpiresAt,
		"createdAt": time.Now(),
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by state, returning nil when absent.
func (r *SessionRepository) GetSession(ctx context.Context, state string) (*domain.Session, error) {
	var doc struct {
		Shop      string    `bson:"shop"`
		State     string    `bson:"state"`
		Scopes    []string  `bson:"scopes"`
		ReturnURL string    `bson:"returnUrl"`
		ExpiresAt time.Time `bson:"expiresAt"`
		CreatedAt time.Time `bson:"createdAt"`
	}

	err := r.collection.FindOne(ctx, bson.M{"state": state}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &domain.Session{
		Shop:      doc.Shop,
		State:     doc.State,
		Scopes:    doc.Scopes,
		ReturnURL: doc.ReturnURL,
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// DeleteSession removes a session by state.
func (r *SessionRepository) DeleteSession(ctx context.Context, state string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"state": state})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
