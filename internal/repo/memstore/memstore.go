// Package memstore is an in-memory implementation of the persistence layer
// for tests and local development. Transactions are serializable: a running
// transaction blocks every other reader and writer until it commits or rolls
// back, and a rollback restores the snapshot taken when it began.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tazhibayda/places-service/internal/domain"
	"github.com/tazhibayda/places-service/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type txKey struct{}

type Store struct {
	tx sync.RWMutex // held exclusively by a running transaction
	mu sync.RWMutex // guards the maps

	users  map[primitive.ObjectID]*domain.User
	emails map[string]primitive.ObjectID
	places map[primitive.ObjectID]*domain.Place
}

func New() *Store {
	return &Store{
		users:  make(map[primitive.ObjectID]*domain.User),
		emails: make(map[string]primitive.ObjectID),
		places: make(map[primitive.ObjectID]*domain.Place),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close(ctx context.Context) error { return nil }

// enter waits for any running transaction unless ctx belongs to it.
func (s *Store) enter(ctx context.Context) func() {
	if ctx.Value(txKey{}) == s {
		return func() {}
	}
	s.tx.RLock()
	return s.tx.RUnlock
}

func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}
	s.tx.Lock()
	defer s.tx.Unlock()

	users, emails, places := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.users, s.emails, s.places = users, emails, places
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) snapshot() (map[primitive.ObjectID]*domain.User, map[string]primitive.ObjectID, map[primitive.ObjectID]*domain.Place) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make(map[primitive.ObjectID]*domain.User, len(s.users))
	for id, u := range s.users {
		users[id] = cloneUser(u)
	}
	emails := make(map[string]primitive.ObjectID, len(s.emails))
	for e, id := range s.emails {
		emails[e] = id
	}
	places := make(map[primitive.ObjectID]*domain.Place, len(s.places))
	for id, p := range s.places {
		cp := *p
		places[id] = &cp
	}
	return users, emails, places
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	cp.Places = append([]primitive.ObjectID{}, u.Places...)
	return &cp
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	defer s.enter(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return repo.ErrEmailExists
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Places == nil {
		u.Places = []primitive.ObjectID{}
	}
	s.users[u.ID] = cloneUser(u)
	s.emails[u.Email] = u.ID
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer s.enter(ctx)()
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, nil
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	defer s.enter(ctx)()
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	defer s.enter(ctx)()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		cp := cloneUser(u)
		cp.PasswordHash = ""
		out = append(out, *cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) PushUserPlace(ctx context.Context, uid, pid primitive.ObjectID) error {
	defer s.enter(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return repo.ErrNotFound
	}
	u.Places = append(u.Places, pid)
	return nil
}

func (s *Store) PullUserPlace(ctx context.Context, uid, pid primitive.ObjectID) error {
	defer s.enter(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return repo.ErrNotFound
	}
	kept := u.Places[:0]
	for _, id := range u.Places {
		if id != pid {
			kept = append(kept, id)
		}
	}
	u.Places = kept
	return nil
}

func (s *Store) InsertPlace(ctx context.Context, p *domain.Place) error {
	defer s.enter(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.places[p.ID] = &cp
	return nil
}

func (s *Store) FindPlaceByID(ctx context.Context, id primitive.ObjectID) (*domain.Place, error) {
	defer s.enter(ctx)()
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.places[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) FindPlacesByCreator(ctx context.Context, uid primitive.ObjectID) ([]domain.Place, error) {
	defer s.enter(ctx)()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Place{}
	for _, p := range s.places {
		if p.Creator == uid {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdatePlaceText(ctx context.Context, id primitive.ObjectID, title, description string, at time.Time) error {
	defer s.enter(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.places[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.Title, p.Description, p.UpdatedAt = title, description, at.UTC()
	return nil
}

func (s *Store) DeletePlace(ctx context.Context, id primitive.ObjectID) error {
	defer s.enter(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.places, id)
	return nil
}
