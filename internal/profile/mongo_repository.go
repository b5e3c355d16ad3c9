package profile

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CollectionName is the MongoDB collection holding profiles.
const CollectionName = "profiles"

// MongoRepository implements Store on a MongoDB collection keyed by user id.
type MongoRepository struct {
	collection *mongo.Collection
}

// NewMongoRepository creates a new MongoRepository.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection(CollectionName)}
}

// Get returns the profile of a user, or nil if not found.
func (r *MongoRepository) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("collection.FindOne(%s) > %w", userID, err)
	}
	if p.WrongAnswers == nil {
		p.WrongAnswers = WrongAnswerLog{}
	}
	return &p, nil
}

// Create inserts a new profile document.
func (r *MongoRepository) Create(ctx context.Context, p *Profile) error {
	if _, err := r.collection.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("collection.InsertOne(%s) > %w", p.UserID, err)
	}
	return nil
}

// Update replaces the whole document. The last writer wins.
func (r *MongoRepository) Update(ctx context.Context, p *Profile) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": p.UserID}, p)
	if err != nil {
		return fmt.Errorf("collection.ReplaceOne(%s) > %w", p.UserID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("update profile %s: %w", p.UserID, mongo.ErrNoDocuments)
	}
	return nil
}
