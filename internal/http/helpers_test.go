package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/places-service/internal/geocode"
	api "github.com/tazhibayda/places-service/internal/http"
	"github.com/tazhibayda/places-service/internal/queue"
	"github.com/tazhibayda/places-service/internal/ratelimit"
	"github.com/tazhibayda/places-service/internal/repo/memstore"
	"github.com/tazhibayda/places-service/internal/security"
	"github.com/tazhibayda/places-service/internal/service"
	"github.com/tazhibayda/places-service/internal/storage"
	"go.uber.org/zap"
)

type testEnv struct {
	T        *testing.T
	Store    *memstore.Store
	Tokens   *security.TokenService
	Router   *gin.Engine
	Uploads  string
	geocoder *httptest.Server
}

// arcgis answers like findAddressCandidates: one candidate unless the
// address is "nowhere".
func arcgis(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Query().Get("singleLine") == "nowhere" {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
		return
	}
	_, _ = w.Write([]byte(`{"candidates":[{"address":"221B Baker St","location":{"x":-0.15,"y":51.5},"score":100}]}`))
}

func newTestEnv(t *testing.T, loginsPerMin int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	geo := httptest.NewServer(http.HandlerFunc(arcgis))
	t.Cleanup(geo.Close)

	dir := t.TempDir()
	files, err := storage.NewLocal(dir)
	require.NoError(t, err)

	store := memstore.New()
	tokens := security.NewHS256("test-secret", time.Hour)
	logger := zap.NewNop()
	pub := queue.NewNoop()

	places := service.NewPlaceService(store, geocode.New(geo.URL, time.Second), files, pub, logger)
	users := service.NewUserService(store, security.NewBcryptHasher(4), tokens, pub, logger)

	h := api.NewHandler(places, users, files, store, nil, 1, logger)
	r := api.NewRouter(h, api.RouterConfig{
		Tokens:  tokens,
		Limiter: ratelimit.NewMemory(loginsPerMin, time.Minute),
		Service: "places-test",
	})
	return &testEnv{T: t, Store: store, Tokens: tokens, Router: r, Uploads: dir, geocoder: geo}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) json(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(req)
}

// multipart builds a form with the given fields and an "image" part of
// the given content type; an empty imageType leaves the part out.
func (e *testEnv) multipart(method, path string, fields map[string]string, imageType, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.T, mw.WriteField(k, v))
	}
	if imageType != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="image"; filename="pic"`)
		hdr.Set("Content-Type", imageType)
		part, err := mw.CreatePart(hdr)
		require.NoError(e.T, err)
		_, _ = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	}
	require.NoError(e.T, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(req)
}

func (e *testEnv) signup(name, email string) service.AuthResult {
	w := e.multipart("POST", "/api/users/signup", map[string]string{
		"name": name, "email": email, "password": "secret1",
	}, "image/png", "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())
	var res service.AuthResult
	require.NoError(e.T, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func (e *testEnv) uploads() int {
	entries, err := os.ReadDir(e.Uploads)
	require.NoError(e.T, err)
	return len(entries)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), fmt.Sprintf("body=%s", w.Body.String()))
}
