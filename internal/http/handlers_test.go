package http_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type placeBody struct {
	Place struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Creator  string `json:"creator"`
		Image    string `json:"image"`
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"place"`
}

type messageBody struct {
	Message string `json:"message"`
}

var cafe = map[string]string{
	"title":       "Cafe",
	"description": "Coffee near the museum",
	"address":     "221B Baker St",
}

func Test_Signup_Login_PlaceLifecycle(t *testing.T) {
	env := newTestEnv(t, 10)

	ann := env.signup("Ann", "ann@x.com")
	assert.NotEmpty(t, ann.Token)

	w := env.json("POST", "/api/users/login", `{"email":"ann@x.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.multipart("POST", "/api/places", cafe, "image/jpeg", ann.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created placeBody
	decode(t, w, &created)
	assert.Equal(t, ann.UserID, created.Place.Creator)
	assert.Equal(t, 51.5, created.Place.Location.Lat)
	assert.Equal(t, -0.15, created.Place.Location.Lng)
	assert.True(t, strings.HasSuffix(created.Place.Image, ".jpeg"))

	w = env.json("GET", "/api/places/"+created.Place.ID, "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.json("GET", "/api/places/user/"+ann.UserID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Places []struct{ ID string } `json:"places"`
	}
	decode(t, w, &list)
	require.Len(t, list.Places, 1)

	w = env.json("PATCH", "/api/places/"+created.Place.ID, `{"title":"Tea room","description":"Quiet place"}`, ann.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated placeBody
	decode(t, w, &updated)
	assert.Equal(t, "Tea room", updated.Place.Title)
	assert.Equal(t, 51.5, updated.Place.Location.Lat)

	assert.Equal(t, 2, env.uploads())
	w = env.json("DELETE", "/api/places/"+created.Place.ID, "", ann.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var msg messageBody
	decode(t, w, &msg)
	assert.Equal(t, "Deleted place.", msg.Message)
	assert.Equal(t, 1, env.uploads(), "place image is removed with the place")

	w = env.json("GET", "/api/places/"+created.Place.ID, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_AuthGate(t *testing.T) {
	env := newTestEnv(t, 10)

	for _, token := range []string{"", "garbage"} {
		w := env.multipart("POST", "/api/places", cafe, "image/png", token)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		var msg messageBody
		decode(t, w, &msg)
		assert.Equal(t, "Authentication failed!", msg.Message)
	}
	assert.Equal(t, 0, env.uploads())
}

func Test_NonOwnerIsForbidden(t *testing.T) {
	env := newTestEnv(t, 10)
	ann := env.signup("Ann", "ann@x.com")
	bob := env.signup("Bob", "bob@x.com")

	w := env.multipart("POST", "/api/places", cafe, "image/png", ann.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created placeBody
	decode(t, w, &created)

	for _, body := range []string{`{"title":"","description":""}`, "", `{"title":`} {
		w = env.json("PATCH", "/api/places/"+created.Place.ID, body, bob.Token)
		assert.Equal(t, http.StatusForbidden, w.Code, "body %q", body)
	}
	w = env.json("PATCH", "/api/places/"+created.Place.ID, `{"title":`, ann.Token)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = env.json("DELETE", "/api/places/"+created.Place.ID, "", bob.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.json("GET", "/api/places/"+created.Place.ID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got placeBody
	decode(t, w, &got)
	assert.Equal(t, "Cafe", got.Place.Title)
}

func Test_FailedRequestRemovesUpload(t *testing.T) {
	env := newTestEnv(t, 10)
	ann := env.signup("Ann", "ann@x.com")
	require.Equal(t, 1, env.uploads())

	w := env.multipart("POST", "/api/users/signup", map[string]string{
		"name": "Ann again", "email": "ann@x.com", "password": "secret1",
	}, "image/png", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var msg messageBody
	decode(t, w, &msg)
	assert.Equal(t, "User exists already, please login instead.", msg.Message)

	nowhere := map[string]string{"title": "Void", "description": "Nothing here", "address": "nowhere"}
	w = env.multipart("POST", "/api/places", nowhere, "image/png", ann.Token)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	decode(t, w, &msg)
	assert.Equal(t, "Could not find location for the specified address.", msg.Message)

	assert.Equal(t, 1, env.uploads())
}

func Test_UploadFilter(t *testing.T) {
	env := newTestEnv(t, 10)
	fields := map[string]string{"name": "Ann", "email": "ann@x.com", "password": "secret1"}

	w := env.multipart("POST", "/api/users/signup", fields, "application/pdf", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var msg messageBody
	decode(t, w, &msg)
	assert.Equal(t, "Invalid mime type!", msg.Message)

	w = env.multipart("POST", "/api/users/signup", fields, "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 0, env.uploads())
}

func Test_LoginErrorsAndRateLimit(t *testing.T) {
	env := newTestEnv(t, 3)
	env.signup("Ann", "ann@x.com")

	wrong := env.json("POST", "/api/users/login", `{"email":"ann@x.com","password":"nope123"}`, "")
	unknown := env.json("POST", "/api/users/login", `{"email":"bob@x.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusForbidden, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	w := env.json("POST", "/api/users/login", `{"email":"ann@x.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.json("POST", "/api/users/login", `{"email":"ann@x.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func Test_UsersListAndMisc(t *testing.T) {
	env := newTestEnv(t, 10)
	env.signup("Ann", "ann@x.com")

	w := env.json("GET", "/api/users", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), `"name":"Ann"`)

	w = env.json("GET", "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var msg messageBody
	decode(t, w, &msg)
	assert.Equal(t, "Could not find this route.", msg.Message)

	w = env.json("GET", "/api/places/user/5f1d7f9c2a4b3c0012345678", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.json("GET", "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
