package repo_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/places-service/internal/domain"
	"github.com/tazhibayda/places-service/internal/repo"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newStore(t *testing.T) *repo.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("mongo container test skipped in -short mode")
	}
	ctx := context.Background()

	// transactions need a replica set
	mc, err := mongodb.Run(ctx, "mongo:6", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err, "mongo container")
	t.Cleanup(func() { _ = mc.Terminate(context.Background()) })

	uri, err := mc.ConnectionString(ctx)
	require.NoError(t, err)
	if !strings.Contains(uri, "?") {
		uri = strings.TrimSuffix(uri, "/") + "/?directConnection=true"
	}

	store, err := repo.NewStore(ctx, uri, "places_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestStore_UserUniqueEmail(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u := &domain.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "h", Image: "uploads/images/a.png"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.False(t, u.ID.IsZero())

	err := s.CreateUser(ctx, &domain.User{Name: "Ann2", Email: "ann@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repo.ErrEmailExists)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].PasswordHash, "password must be projected out")

	got, err := s.FindUserByEmail(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_TransactionCommitsBothDocuments(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u := &domain.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "h"}
	require.NoError(t, s.CreateUser(ctx, u))

	p := &domain.Place{Title: "Cafe", Description: "Nice cafe", Address: "221B Baker St",
		Location: domain.Location{Lat: 51.5, Lng: -0.15}, Creator: u.ID}
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.InsertPlace(ctx, p); err != nil {
			return err
		}
		return s.PushUserPlace(ctx, u.ID, p.ID)
	})
	require.NoError(t, err)

	got, err := s.FindPlaceByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.Location, got.Location)

	owner, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p.ID}, owner.Places)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u := &domain.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "h"}
	require.NoError(t, s.CreateUser(ctx, u))

	boom := errors.New("injected")
	p := &domain.Place{Title: "Cafe", Creator: u.ID}
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.InsertPlace(ctx, p); err != nil {
			return err
		}
		if err := s.PushUserPlace(ctx, u.ID, p.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.FindPlaceByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "place must not survive an aborted transaction")

	owner, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, owner.Places)
}

func TestStore_PlaceUpdateDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	uid := primitive.NewObjectID()
	p := &domain.Place{Title: "Cafe", Description: "Nice cafe", Address: "a",
		Location: domain.Location{Lat: 1, Lng: 2}, Creator: uid}
	require.NoError(t, s.InsertPlace(ctx, p))

	require.NoError(t, s.UpdatePlaceText(ctx, p.ID, "Bar", "Nice bar", time.Now()))
	got, err := s.FindPlaceByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bar", got.Title)
	assert.Equal(t, domain.Location{Lat: 1, Lng: 2}, got.Location)

	list, err := s.FindPlacesByCreator(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeletePlace(ctx, p.ID))
	assert.ErrorIs(t, s.DeletePlace(ctx, p.ID), repo.ErrNotFound)
	assert.ErrorIs(t, s.UpdatePlaceText(ctx, p.ID, "x", "y", time.Now()), repo.ErrNotFound)
	assert.ErrorIs(t, s.PushUserPlace(ctx, primitive.NewObjectID(), p.ID), repo.ErrNotFound)
}
