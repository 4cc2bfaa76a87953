package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/places-service/internal/security"
	"github.com/tazhibayda/places-service/internal/service"
	"github.com/tazhibayda/places-service/internal/storage"
	"go.uber.org/zap"
)

const msgAuthFailed = "Authentication failed!"

// Pinger reports whether the persistence layer is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Places         *service.PlaceService
	Users          *service.UserService
	Files          storage.Files
	Store          Pinger
	Keys           *security.KeyManager // nil unless tokens are RS256
	MaxUploadBytes int64
	Log            *zap.Logger
}

func NewHandler(places *service.PlaceService, users *service.UserService, files storage.Files, store Pinger, keys *security.KeyManager, maxUploadMB int, logger *zap.Logger) *Handler {
	return &Handler{
		Places:         places,
		Users:          users,
		Files:          files,
		Store:          store,
		Keys:           keys,
		MaxUploadBytes: int64(maxUploadMB) << 20,
		Log:            logger,
	}
}

type messageResp struct {
	Message string `json:"message"`
}

// GetPlaceByID godoc
// @Summary Get a place
// @Tags places
// @Produce json
// @Param pid path string true "place id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} messageResp
// @Router /api/places/{pid} [get]
func (h *Handler) GetPlaceByID(c *gin.Context) {
	p, err := h.Places.GetPlaceByID(c.Request.Context(), c.Param("pid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"place": p})
}

// GetPlacesByUserID godoc
// @Summary List places of a user
// @Tags places
// @Produce json
// @Param uid path string true "user id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} messageResp
// @Router /api/places/user/{uid} [get]
func (h *Handler) GetPlacesByUserID(c *gin.Context) {
	places, err := h.Places.GetPlacesByUserID(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}

// CreatePlace godoc
// @Summary Create a place
// @Tags places
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param title formData string true "title"
// @Param description formData string true "description, at least 5 characters"
// @Param address formData string true "address to geocode"
// @Param image formData file true "png or jpeg"
// @Success 201 {object} map[string]any
// @Failure 401 {object} messageResp
// @Failure 422 {object} messageResp
// @Failure 500 {object} messageResp
// @Router /api/places [post]
func (h *Handler) CreatePlace(c *gin.Context) {
	ref, err := h.saveImage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.Places.CreatePlace(c.Request.Context(), c.GetString("uid"), service.CreatePlaceInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Address:     c.PostForm("address"),
		Image:       ref,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"place": p})
}

type updatePlaceReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdatePlace godoc
// @Summary Update title and description
// @Tags places
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param pid path string true "place id"
// @Param payload body updatePlaceReq true "new title and description"
// @Success 200 {object} map[string]any
// @Failure 403 {object} messageResp
// @Failure 404 {object} messageResp
// @Failure 422 {object} messageResp
// @Router /api/places/{pid} [patch]
func (h *Handler) UpdatePlace(c *gin.Context) {
	// an unreadable body is left empty; the workflow checks ownership before it
	// rejects the input
	var in updatePlaceReq
	if err := c.ShouldBindJSON(&in); err != nil {
		in = updatePlaceReq{}
	}
	p, err := h.Places.UpdatePlace(c.Request.Context(), c.Param("pid"), c.GetString("uid"), service.UpdatePlaceInput{
		Title:       in.Title,
		Description: in.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"place": p})
}

// DeletePlace godoc
// @Summary Delete a place
// @Tags places
// @Security BearerAuth
// @Produce json
// @Param pid path string true "place id"
// @Success 200 {object} messageResp
// @Failure 403 {object} messageResp
// @Failure 404 {object} messageResp
// @Router /api/places/{pid} [delete]
func (h *Handler) DeletePlace(c *gin.Context) {
	if err := h.Places.DeletePlace(c.Request.Context(), c.Param("pid"), c.GetString("uid")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted place."})
}

// GetUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/users [get]
func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.Users.GetUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Signup godoc
// @Summary Sign up
// @Tags users
// @Accept mpfd
// @Produce json
// @Param name formData string true "name"
// @Param email formData string true "email"
// @Param password formData string true "at least 6 characters"
// @Param image formData file true "png or jpeg"
// @Success 201 {object} service.AuthResult
// @Failure 422 {object} messageResp
// @Router /api/users/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	ref, err := h.saveImage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.Users.Signup(c.Request.Context(), service.SignupInput{
		Name:     c.PostForm("name"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		Image:    ref,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Log in
// @Tags users
// @Accept json
// @Produce json
// @Param payload body loginReq true "credentials"
// @Success 200 {object} service.AuthResult
// @Failure 403 {object} messageResp
// @Failure 429 {object} messageResp
// @Router /api/users/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid inputs passed, please check your data."})
		return
	}
	res, err := h.Users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// JWKS publishes the RS256 verification keys.
func (h *Handler) JWKS(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, h.Keys.JWKS())
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": "Could not find this route."})
}
