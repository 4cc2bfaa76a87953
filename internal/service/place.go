package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tazhibayda/places-service/internal/apperr"
	"github.com/tazhibayda/places-service/internal/domain"
	"github.com/tazhibayda/places-service/internal/geocode"
	"github.com/tazhibayda/places-service/internal/log"
	"github.com/tazhibayda/places-service/internal/metrics"
	"github.com/tazhibayda/places-service/internal/queue"
	"github.com/tazhibayda/places-service/internal/repo"
	"github.com/tazhibayda/places-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PlaceStore is the persistence the place workflow needs. Calls made with the
// ctx passed into a WithTransaction callback run inside that transaction.
type PlaceStore interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	PushUserPlace(ctx context.Context, uid, pid primitive.ObjectID) error
	PullUserPlace(ctx context.Context, uid, pid primitive.ObjectID) error

	InsertPlace(ctx context.Context, p *domain.Place) error
	FindPlaceByID(ctx context.Context, id primitive.ObjectID) (*domain.Place, error)
	FindPlacesByCreator(ctx context.Context, uid primitive.ObjectID) ([]domain.Place, error)
	UpdatePlaceText(ctx context.Context, id primitive.ObjectID, title, description string, at time.Time) error
	DeletePlace(ctx context.Context, id primitive.ObjectID) error
}

// errPlaceGone marks a place deleted between the ownership check and the transaction.
var errPlaceGone = errors.New("place already deleted")

type CreatePlaceInput struct {
	Title       string `validate:"required"`
	Description string `validate:"min=5"`
	Address     string `validate:"required"`
	Image       string `validate:"required"`
}

type UpdatePlaceInput struct {
	Title       string `validate:"required"`
	Description string `validate:"min=5"`
}

type PlaceService struct {
	base
	store PlaceStore
	geo   geocode.Resolver
	files storage.Files
	now   func() time.Time
}

func NewPlaceService(store PlaceStore, geo geocode.Resolver, files storage.Files, events queue.Publisher, logger *zap.Logger) *PlaceService {
	return &PlaceService{
		base:  base{log: logger, events: events},
		store: store,
		geo:   geo,
		files: files,
		now:   time.Now,
	}
}

func (s *PlaceService) GetPlaceByID(ctx context.Context, id string) (*domain.Place, error) {
	p, err := s.getPlaceByID(ctx, id)
	return p, s.done(ctx, "get_place", err)
}

func (s *PlaceService) getPlaceByID(ctx context.Context, id string) (*domain.Place, error) {
	pid, ok := parseID(id)
	if !ok {
		return nil, apperr.NotFound("Could not find a place for the provided id.")
	}
	p, err := s.store.FindPlaceByID(ctx, pid)
	if err != nil {
		return nil, apperr.Storage("Something went wrong, could not find a place.", err)
	}
	if p == nil {
		return nil, apperr.NotFound("Could not find a place for the provided id.")
	}
	return p, nil
}

// GetPlacesByUserID returns NotFound both for an unknown user and for a user
// without places.
func (s *PlaceService) GetPlacesByUserID(ctx context.Context, userID string) ([]domain.Place, error) {
	places, err := s.getPlacesByUserID(ctx, userID)
	return places, s.done(ctx, "list_places", err)
}

func (s *PlaceService) getPlacesByUserID(ctx context.Context, userID string) ([]domain.Place, error) {
	uid, ok := parseID(userID)
	if !ok {
		return nil, apperr.NotFound("Could not find places for the provided user id.")
	}
	places, err := s.store.FindPlacesByCreator(ctx, uid)
	if err != nil {
		return nil, apperr.Storage("Fetching places failed, please try again later.", err)
	}
	if len(places) == 0 {
		return nil, apperr.NotFound("Could not find places for the provided user id.")
	}
	return places, nil
}

// CreatePlace geocodes the address, then stores the place and links it into
// its creator's places in one transaction. creatorID must be a verified
// identity supplied by the caller.
func (s *PlaceService) CreatePlace(ctx context.Context, creatorID string, in CreatePlaceInput) (*domain.Place, error) {
	p, err := s.createPlace(ctx, creatorID, in)
	if err == nil {
		s.publish(ctx, queue.KeyPlaceCreated, queue.PlaceCreated{
			PlaceID:   p.ID.Hex(),
			CreatorID: p.Creator.Hex(),
			Title:     p.Title,
			Lat:       p.Location.Lat,
			Lng:       p.Location.Lng,
		})
	}
	return p, s.done(ctx, "create_place", err)
}

func (s *PlaceService) createPlace(ctx context.Context, creatorID string, in CreatePlaceInput) (*domain.Place, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	if err := checkInput(in); err != nil {
		return nil, err
	}

	loc, err := s.geo.Resolve(ctx, in.Address)
	if errors.Is(err, geocode.ErrNoMatch) {
		return nil, apperr.Validation("Could not find location for the specified address.", err)
	}
	if err != nil {
		return nil, apperr.Upstream("Could not resolve the address, please try again later.", err)
	}

	now := s.now().UTC()
	p := &domain.Place{
		ID:          primitive.NewObjectID(),
		Title:       in.Title,
		Description: in.Description,
		Address:     in.Address,
		Location:    loc,
		Image:       in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// A missing creator is reported as a server error, not as NotFound.
	uid, ok := parseID(creatorID)
	if !ok {
		return nil, apperr.Storage("Could not find user for provided id.", nil)
	}
	user, err := s.store.FindUserByID(ctx, uid)
	if err != nil {
		return nil, apperr.Storage("Creating place failed, please try again.", err)
	}
	if user == nil {
		return nil, apperr.Storage("Could not find user for provided id.", nil)
	}
	p.Creator = user.ID

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.InsertPlace(ctx, p); err != nil {
			return err
		}
		return s.store.PushUserPlace(ctx, user.ID, p.ID)
	})
	if err != nil {
		metrics.TxAborted.WithLabelValues("create_place").Inc()
		return nil, apperr.Storage("Creating place failed, please try again.", err)
	}
	return p, nil
}

// UpdatePlace changes title and description of a place owned by requesterID.
// Ownership is checked before the input is validated.
func (s *PlaceService) UpdatePlace(ctx context.Context, id, requesterID string, in UpdatePlaceInput) (*domain.Place, error) {
	p, err := s.updatePlace(ctx, id, requesterID, in)
	return p, s.done(ctx, "update_place", err)
}

func (s *PlaceService) updatePlace(ctx context.Context, id, requesterID string, in UpdatePlaceInput) (*domain.Place, error) {
	p, err := s.loadPlace(ctx, id, "Something went wrong, could not update place.")
	if err != nil {
		return nil, err
	}
	if p.Creator.Hex() != requesterID {
		return nil, apperr.Forbidden("You are not allowed to edit this place.")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := checkInput(in); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	err = s.store.UpdatePlaceText(ctx, p.ID, in.Title, in.Description, at)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound("Could not find place for this id.")
	}
	if err != nil {
		return nil, apperr.Storage("Something went wrong, could not update place.", err)
	}
	p.Title, p.Description, p.UpdatedAt = in.Title, in.Description, at
	return p, nil
}

// DeletePlace removes a place owned by requesterID together with the
// back-reference in its creator, then deletes the image best-effort.
func (s *PlaceService) DeletePlace(ctx context.Context, id, requesterID string) error {
	p, err := s.deletePlace(ctx, id, requesterID)
	if err == nil {
		if ferr := s.files.Delete(ctx, p.Image); ferr != nil {
			log.WithDD(ctx, s.log).Warn("image delete failed",
				zap.String("place_id", p.ID.Hex()), zap.String("image", p.Image), zap.Error(ferr))
		}
		s.publish(ctx, queue.KeyPlaceDeleted, queue.PlaceDeleted{PlaceID: p.ID.Hex(), CreatorID: p.Creator.Hex()})
	}
	return s.done(ctx, "delete_place", err)
}

func (s *PlaceService) deletePlace(ctx context.Context, id, requesterID string) (*domain.Place, error) {
	const failed = "Something went wrong, could not delete place."

	p, err := s.loadPlace(ctx, id, failed)
	if err != nil {
		return nil, err
	}
	if p.Creator.Hex() != requesterID {
		return nil, apperr.Forbidden("You are not allowed to delete this place.")
	}
	creator, err := s.store.FindUserByID(ctx, p.Creator)
	if err != nil {
		return nil, apperr.Storage(failed, err)
	}
	if creator == nil {
		return nil, apperr.Storage(failed, errors.New("creator of place "+p.ID.Hex()+" is missing"))
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.DeletePlace(ctx, p.ID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errPlaceGone
			}
			return err
		}
		return s.store.PullUserPlace(ctx, creator.ID, p.ID)
	})
	if errors.Is(err, errPlaceGone) {
		return nil, apperr.NotFound("Could not find place for this id.")
	}
	if err != nil {
		metrics.TxAborted.WithLabelValues("delete_place").Inc()
		return nil, apperr.Storage(failed, err)
	}
	return p, nil
}

func (s *PlaceService) loadPlace(ctx context.Context, id, failed string) (*domain.Place, error) {
	pid, ok := parseID(id)
	if !ok {
		return nil, apperr.NotFound("Could not find place for this id.")
	}
	p, err := s.store.FindPlaceByID(ctx, pid)
	if err != nil {
		return nil, apperr.Storage(failed, err)
	}
	if p == nil {
		return nil, apperr.NotFound("Could not find place for this id.")
	}
	return p, nil
}
