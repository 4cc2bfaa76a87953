package repo

import (
	"context"
	"time"

	"github.com/tazhibayda/places-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertPlace stores p; a zero p.ID is generated first so callers can link
// the id before the transaction commits.
func (s *Store) InsertPlace(ctx context.Context, p *domain.Place) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	_, err := s.colPlaces.InsertOne(ctx, p)
	return err
}

// FindPlaceByID returns (nil, nil) when the place does not exist.
func (s *Store) FindPlaceByID(ctx context.Context, id primitive.ObjectID) (*domain.Place, error) {
	var p domain.Place
	err := s.colPlaces.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPlacesByCreator returns the user's places oldest first.
func (s *Store) FindPlacesByCreator(ctx context.Context, uid primitive.ObjectID) ([]domain.Place, error) {
	cur, err := s.colPlaces.Find(ctx,
		bson.M{"creator": uid},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Place{}
	for cur.Next(ctx) {
		var p domain.Place
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, cur.Err()
}

// UpdatePlaceText sets title and description only; address and location are
// never rewritten after creation.
func (s *Store) UpdatePlaceText(ctx context.Context, id primitive.ObjectID, title, description string, at time.Time) error {
	res, err := s.colPlaces.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"title": title, "description": description, "updated_at": at.UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeletePlace(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.colPlaces.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
