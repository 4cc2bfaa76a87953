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

// CreateUser inserts u and sets u.ID. A duplicate e-mail yields ErrEmailExists.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Places == nil {
		u.Places = []primitive.ObjectID{}
	}
	res, err := s.colUsers.InsertOne(ctx, u)
	if IsDup(err) {
		return ErrEmailExists
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail returns (nil, nil) when no user has that e-mail.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

// FindUserByID returns (nil, nil) when the user does not exist.
func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

// ListUsers returns every user without the password hash.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	cur, err := s.colUsers.Find(ctx, bson.M{},
		options.Find().
			SetProjection(bson.M{"password": 0}).
			SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.User{}
	for cur.Next(ctx) {
		var u domain.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, cur.Err()
}

// PushUserPlace appends pid to the user's back-references.
func (s *Store) PushUserPlace(ctx context.Context, uid, pid primitive.ObjectID) error {
	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$push": bson.M{"places": pid}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PullUserPlace removes pid from the user's back-references.
func (s *Store) PullUserPlace(ctx context.Context, uid, pid primitive.ObjectID) error {
	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$pull": bson.M{"places": pid}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
