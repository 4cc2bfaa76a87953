package service

import (
	"context"
	"errors"
	"strings"

	"github.com/tazhibayda/places-service/internal/apperr"
	"github.com/tazhibayda/places-service/internal/domain"
	"github.com/tazhibayda/places-service/internal/helper"
	"github.com/tazhibayda/places-service/internal/log"
	"github.com/tazhibayda/places-service/internal/queue"
	"github.com/tazhibayda/places-service/internal/repo"
	"github.com/tazhibayda/places-service/internal/security"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Same message whether the e-mail is unknown or the password is wrong.
const msgInvalidCredentials = "Invalid credentials, could not log you in."

type UserStore interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
}

// TokenIssuer signs identity tokens bound to a user id and e-mail.
type TokenIssuer interface {
	Issue(uid, email string) (string, error)
}

type SignupInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"min=6"`
	Image    string `validate:"required"`
}

// AuthResult is what signup and login hand back; never the password or its hash.
type AuthResult struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

type UserService struct {
	base
	store  UserStore
	hasher security.Hasher
	tokens TokenIssuer
}

func NewUserService(store UserStore, hasher security.Hasher, tokens TokenIssuer, events queue.Publisher, logger *zap.Logger) *UserService {
	return &UserService{
		base:   base{log: logger, events: events},
		store:  store,
		hasher: hasher,
		tokens: tokens,
	}
}

// GetUsers lists users with the password hash cleared.
func (s *UserService) GetUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, s.done(ctx, "list_users", apperr.Storage("Fetching users failed, please try again later.", err))
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, s.done(ctx, "list_users", nil)
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	u, res, err := s.signup(ctx, in)
	if err == nil {
		s.publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{UserID: u.ID.Hex(), Email: u.Email, Name: u.Name})
		log.WithDD(ctx, s.log).Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("email_h", helper.Hash8(u.Email)))
	}
	return res, s.done(ctx, "signup", err)
}

func (s *UserService) signup(ctx context.Context, in SignupInput) (*domain.User, *AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = helper.NormalizeEmail(in.Email)
	if err := checkInput(in); err != nil {
		return nil, nil, err
	}

	existing, err := s.store.FindUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, nil, apperr.Storage("Signing up failed, please try again later.", err)
	}
	if existing != nil {
		return nil, nil, apperr.Conflict("User exists already, please login instead.")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, apperr.Storage("Could not create user, please try again.", err)
	}

	u := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Image:        in.Image,
		Places:       []primitive.ObjectID{},
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		// the unique index catches a concurrent signup the lookup above missed
		if errors.Is(err, repo.ErrEmailExists) {
			return nil, nil, apperr.Conflict("User exists already, please login instead.")
		}
		return nil, nil, apperr.Storage("Signing up failed, please try again later.", err)
	}

	tok, err := s.tokens.Issue(u.ID.Hex(), u.Email)
	if err != nil {
		return nil, nil, apperr.Upstream("Signing up failed, please try again later.", err)
	}
	return u, &AuthResult{UserID: u.ID.Hex(), Email: u.Email, Token: tok}, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	res, err := s.login(ctx, email, password)
	if err == nil {
		s.publish(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: res.UserID, Email: res.Email})
	} else if apperr.KindOf(err) == apperr.KindForbidden {
		log.WithDD(ctx, s.log).Info("login rejected", zap.String("email_h", helper.Hash8(helper.NormalizeEmail(email))))
	}
	return res, s.done(ctx, "login", err)
}

func (s *UserService) login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.store.FindUserByEmail(ctx, helper.NormalizeEmail(email))
	if err != nil {
		return nil, apperr.Storage("Logging in failed, please try again later.", err)
	}
	if u == nil {
		return nil, apperr.Forbidden(msgInvalidCredentials)
	}

	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return nil, apperr.Storage("Could not log you in, please check your credentials and try again.", err)
	}
	if !ok {
		return nil, apperr.Forbidden(msgInvalidCredentials)
	}

	tok, err := s.tokens.Issue(u.ID.Hex(), u.Email)
	if err != nil {
		return nil, apperr.Upstream("Logging in failed, please try again later.", err)
	}
	return &AuthResult{UserID: u.ID.Hex(), Email: u.Email, Token: tok}, nil
}
