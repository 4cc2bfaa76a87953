package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location is resolved from the address once, when the place is created.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

type Place struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title"         json:"title"`
	Description string             `bson:"description"   json:"description"`
	Address     string             `bson:"address"       json:"address"`
	Location    Location           `bson:"location"      json:"location"`
	Image       string             `bson:"image"         json:"image"`
	Creator     primitive.ObjectID `bson:"creator"       json:"creator"`
	CreatedAt   time.Time          `bson:"created_at"    json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"    json:"updated_at"`
}
