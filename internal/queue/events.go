package queue

import "context"

// Routing keys on the places exchange.
const (
	KeyPlaceCreated   = "place.created"
	KeyPlaceDeleted   = "place.deleted"
	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
)

type PlaceCreated struct {
	PlaceID   string  `json:"place_id"`
	CreatorID string  `json:"creator_id"`
	Title     string  `json:"title"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

type PlaceDeleted struct {
	PlaceID   string `json:"place_id"`
	CreatorID string `json:"creator_id"`
}

type UserRegistered struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type UserLoggedIn struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type reqIDKey struct{}

// WithRequestID attaches the inbound request id so published messages carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reqIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey{}).(string)
	return id
}
