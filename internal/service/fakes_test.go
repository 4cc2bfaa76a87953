package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/tazhibayda/places-service/internal/domain"
	"github.com/tazhibayda/places-service/internal/geocode"
	"github.com/tazhibayda/places-service/internal/repo/memstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubGeo struct {
	loc   domain.Location
	err   error
	calls atomic.Int32
}

func (g *stubGeo) Resolve(ctx context.Context, address string) (domain.Location, error) {
	g.calls.Add(1)
	return g.loc, g.err
}

var noMatch = &stubGeo{err: geocode.ErrNoMatch}

type stubFiles struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *stubFiles) Save(ctx context.Context, contentType string, r io.Reader) (string, error) {
	return "uploads/images/x.png", nil
}

func (f *stubFiles) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return f.err
}

type published struct {
	key   string
	event any
}

type recordingPub struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPub) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{key, event})
	return p.err
}

func (p *recordingPub) Close() error { return nil }

func (p *recordingPub) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

var errInjected = errors.New("injected failure")

// faultyStore fails the second write of a transaction on demand.
type faultyStore struct {
	*memstore.Store
	failPush bool
	failPull bool
	failFind bool
}

func (s *faultyStore) PushUserPlace(ctx context.Context, uid, pid primitive.ObjectID) error {
	if s.failPush {
		return errInjected
	}
	return s.Store.PushUserPlace(ctx, uid, pid)
}

func (s *faultyStore) PullUserPlace(ctx context.Context, uid, pid primitive.ObjectID) error {
	if s.failPull {
		return errInjected
	}
	return s.Store.PullUserPlace(ctx, uid, pid)
}

func (s *faultyStore) FindPlaceByID(ctx context.Context, id primitive.ObjectID) (*domain.Place, error) {
	if s.failFind {
		return nil, errInjected
	}
	return s.Store.FindPlaceByID(ctx, id)
}

// stubTokens issues a distinct token per call.
type stubTokens struct {
	n   int
	err error
}

func (t *stubTokens) Issue(uid, email string) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	t.n++
	return uid + "." + email + "." + string(rune('a'+t.n)), nil
}
