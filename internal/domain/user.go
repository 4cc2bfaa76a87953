package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name         string               `bson:"name"          json:"name"`
	Email        string               `bson:"email"         json:"email"` // unique, lower-cased
	PasswordHash string               `bson:"password"      json:"-"`
	Image        string               `bson:"image"         json:"image"`
	Places       []primitive.ObjectID `bson:"places"        json:"places"` // back-references, creation order
	CreatedAt    time.Time            `bson:"created_at"    json:"created_at"`
}

// OwnsPlace reports whether pid is among the user's back-references.
func (u *User) OwnsPlace(pid primitive.ObjectID) bool {
	for _, id := range u.Places {
		if id == pid {
			return true
		}
	}
	return false
}
